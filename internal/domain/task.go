package domain

// SLAClass is a task's contracted responsiveness tier. Lower values are
// stricter; class 3 is best-effort and exempt from violation accounting.
type SLAClass int32

const (
	SLA0 SLAClass = 0
	SLA1 SLAClass = 1
	SLA2 SLAClass = 2
	SLA3 SLAClass = 3
)

// String returns the class label used in logs and metrics.
func (c SLAClass) String() string {
	switch c {
	case SLA0:
		return "SLA0"
	case SLA1:
		return "SLA1"
	case SLA2:
		return "SLA2"
	default:
		return "SLA3"
	}
}

// CountsTowardViolations returns true if unmet tasks of this class are
// reported as SLA violations.
func (c SLAClass) CountsTowardViolations() bool {
	return c != SLA3
}

// TaskPriority is the scheduling priority derived from a task's SLA class.
type TaskPriority string

const (
	PriorityHigh TaskPriority = "HIGH"
	PriorityMid  TaskPriority = "MID"
	PriorityLow  TaskPriority = "LOW"
)

// Priority maps an SLA class to a scheduling priority: class 0 is high,
// class 1 is mid, everything else is low.
func (c SLAClass) Priority() TaskPriority {
	switch c {
	case SLA0:
		return PriorityHigh
	case SLA1:
		return PriorityMid
	default:
		return PriorityLow
	}
}

// Task represents a computational task's placement requirements as reported
// by the simulation host.
type Task struct {
	ID        string   `json:"id"`
	CPU       CPUType  `json:"cpu"`
	VMType    VMType   `json:"vm_type"`
	NeedsGPU  bool     `json:"needs_gpu"`
	MemoryMiB int64    `json:"memory_mib"`
	SLA       SLAClass `json:"sla"`
}
