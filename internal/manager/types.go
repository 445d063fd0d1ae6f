package manager

// State represents the lifecycle state of the runtime.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

var phaseStates = [...]State{StateIdle, StateStarting, StateRunning, StateStopping, StateStopped, StateFailed}

type phase int32

const (
	phaseIdle phase = iota
	phaseStarting
	phaseRunning
	phaseStopping
	phaseStopped
	phaseFailed
)

func (p phase) state() State { return phaseStates[p] }

// CallableInfo describes one registry entry.
type CallableInfo struct {
	ID     int
	Module string
	Entry  string
}

// Snapshot is a read-only projection of the scheduler state.
type Snapshot struct {
	State           State
	RefCount        int64
	Workers         int
	QueueLen        int
	QueueCap        int
	Accepting       bool
	ExecLockHeld    bool
	LifecycleThread int
	Callables       []CallableInfo
	Submitted       uint64
	Completed       uint64
	Failed          uint64
	Cancelled       uint64
	Rejected        uint64
	Err             string
}
