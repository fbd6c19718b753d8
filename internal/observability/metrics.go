// Package observability exposes prometheus metrics for scheduling decisions.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Placements counts tasks successfully placed on a VM.
	Placements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_placements_total",
		Help: "Total number of tasks successfully placed on a VM",
	}, []string{"policy"})

	// UnallocatedTasks counts tasks left unallocated, by SLA class.
	UnallocatedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_unallocated_total",
		Help: "Total number of tasks left unallocated (SLA violations)",
	}, []string{"sla"})

	// VMsCreated counts VMs created on demand during placement.
	VMsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsim_vms_created_total",
		Help: "Total number of VMs created by placement decisions",
	}, []string{"policy"})

	// PowerTransitions counts machine power-state change requests.
	PowerTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedsim_power_transitions_total",
		Help: "Total number of machine power-state changes requested",
	})
)
