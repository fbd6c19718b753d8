package scheduler

import "github.com/cloudsched/simcore/internal/domain"

// canHost reports whether a VM attached to machine m can accept the task.
// All five admissibility checks are evaluated unconditionally so a failed
// placement is attributable to the full set under test.
func canHost(m *domain.Machine, vm *domain.VM, t *domain.Task) bool {
	ready := m.Power == domain.PowerReady
	cpuOK := m.CPU == t.CPU
	vmOK := vm == nil || vm.Type == t.VMType
	gpuOK := !t.NeedsGPU || m.HasGPU
	memOK := m.FitsMemory(t.MemoryMiB)
	return ready && cpuOK && vmOK && gpuOK && memOK
}

// machineFits is the machine-level admissibility check used by the policies
// that create VMs on demand. relaxCPU drops the architecture check, the
// documented greedy mode that accepts cross-architecture placement risk in
// exchange for a higher admission rate. hardGPU turns the GPU requirement
// into a filter rather than a scoring signal.
func machineFits(m *domain.Machine, t *domain.Task, relaxCPU, hardGPU bool) bool {
	ready := m.Power == domain.PowerReady
	cpuOK := relaxCPU || m.CPU == t.CPU
	gpuOK := !hardGPU || !t.NeedsGPU || m.HasGPU
	memOK := m.FitsMemory(t.MemoryMiB)
	return ready && cpuOK && gpuOK && memOK
}
