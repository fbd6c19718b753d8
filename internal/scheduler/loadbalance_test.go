package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cloudsched/simcore/internal/domain"
)

func testMachine(cpu domain.CPUType) domain.Machine {
	return domain.Machine{
		CPU:       cpu,
		Power:     domain.PowerReady,
		Cores:     4,
		MemoryMiB: 8192,
	}
}

func TestLoadBalance_InitProvisionsOneVMPerMachine(t *testing.T) {
	h := newFakeHost()
	h.addMachine(testMachine(domain.CPUX86))
	h.addMachine(testMachine(domain.CPUPower))
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if reg.VMCount() != 2 {
		t.Fatalf("expected 2 VMs, got %d", reg.VMCount())
	}
	for i, vmID := range reg.VMs() {
		vm := h.vms[vmID]
		if vm.MachineID != h.order[i] {
			t.Errorf("vm %d attached to %s, want %s", i, vm.MachineID, h.order[i])
		}
	}
	// POWER machines get AIX images, the rest Linux.
	if h.vms[reg.VMs()[0]].Type != domain.VMLinux {
		t.Errorf("x86 machine got %s, want LINUX", h.vms[reg.VMs()[0]].Type)
	}
	if h.vms[reg.VMs()[1]].Type != domain.VMAIX {
		t.Errorf("POWER machine got %s, want AIX", h.vms[reg.VMs()[1]].Type)
	}
}

func TestLoadBalance_PicksLeastLoaded(t *testing.T) {
	h := newFakeHost()
	for i := 0; i < 3; i++ {
		h.addMachine(testMachine(domain.CPUX86))
	}
	h.machines["m0"].ActiveTasks = 2
	h.machines["m1"].ActiveTasks = 0
	h.machines["m2"].ActiveTasks = 1
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	taskID := h.addTaskSpec(domain.Task{CPU: domain.CPUX86, VMType: domain.VMLinux, MemoryMiB: 1024})
	task, _ := h.GetTask(context.Background(), taskID)

	vmID, err := p.Place(context.Background(), h, reg, task)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if h.vms[vmID].MachineID != "m1" {
		t.Errorf("placed on %s, want m1 (least loaded)", h.vms[vmID].MachineID)
	}
}

func TestLoadBalance_TieBreaksToLowestIndex(t *testing.T) {
	h := newFakeHost()
	for i := 0; i < 4; i++ {
		h.addMachine(testMachine(domain.CPUX86))
	}
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	taskID := h.addTaskSpec(domain.Task{CPU: domain.CPUX86, VMType: domain.VMLinux, MemoryMiB: 2048})
	task, _ := h.GetTask(context.Background(), taskID)

	vmID, err := p.Place(context.Background(), h, reg, task)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if h.vms[vmID].MachineID != "m0" {
		t.Errorf("placed on %s, want m0 (all tied, lowest index wins)", h.vms[vmID].MachineID)
	}
}

func TestLoadBalance_SkipsInfeasibleVMs(t *testing.T) {
	h := newFakeHost()
	h.addMachine(testMachine(domain.CPUX86))
	arm := testMachine(domain.CPUARM)
	h.addMachine(arm)
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	// Fill the x86 machine so only the ARM one has headroom.
	h.machines["m0"].MemoryUsedMiB = 8192

	taskID := h.addTaskSpec(domain.Task{CPU: domain.CPUARM, VMType: domain.VMLinux, MemoryMiB: 1024})
	task, _ := h.GetTask(context.Background(), taskID)

	vmID, err := p.Place(context.Background(), h, reg, task)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if h.vms[vmID].MachineID != "m1" {
		t.Errorf("placed on %s, want m1", h.vms[vmID].MachineID)
	}
}

func TestLoadBalance_SkipsMigratingVM(t *testing.T) {
	h := newFakeHost()
	h.addMachine(testMachine(domain.CPUX86))
	h.addMachine(testMachine(domain.CPUX86))
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	reg.MarkMigrating(reg.VMs()[0])

	taskID := h.addTaskSpec(domain.Task{CPU: domain.CPUX86, VMType: domain.VMLinux, MemoryMiB: 1024})
	task, _ := h.GetTask(context.Background(), taskID)

	vmID, err := p.Place(context.Background(), h, reg, task)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if vmID != reg.VMs()[1] {
		t.Errorf("placed on %s, want the non-migrating VM %s", vmID, reg.VMs()[1])
	}
}

func TestLoadBalance_InfeasibleLeavesRegistryUntouched(t *testing.T) {
	h := newFakeHost()
	h.addMachine(testMachine(domain.CPUX86))
	reg := newTestRegistry(h)

	p := NewLoadBalancePolicy(zap.NewNop())
	if err := p.Init(context.Background(), h, reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	before := reg.VMCount()

	taskID := h.addTaskSpec(domain.Task{CPU: domain.CPURiscv, VMType: domain.VMLinux, MemoryMiB: 1024})
	task, _ := h.GetTask(context.Background(), taskID)

	_, err := p.Place(context.Background(), h, reg, task)
	if !errors.Is(err, domain.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if reg.VMCount() != before {
		t.Errorf("registry mutated on infeasible path: %d -> %d", before, reg.VMCount())
	}
}
