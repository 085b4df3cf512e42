package fsm

// Kind names a notification.
type Kind string

const (
	KindStart      Kind = "start"
	KindEntry      Kind = "entry"
	KindJob        Kind = "job"
	KindPending    Kind = "pending"
	KindTransition Kind = "transition"
	KindExit       Kind = "exit"
	KindFinish     Kind = "finish"
	KindStop       Kind = "stop"
	KindError      Kind = "error"
)

// Kinds lists every notification kind in the order a full run emits them.
func Kinds() []Kind {
	return []Kind{
		KindStart, KindEntry, KindJob, KindPending, KindTransition,
		KindExit, KindFinish, KindStop, KindError,
	}
}

// TransitionInfo is attached to KindTransition notifications.
type TransitionInfo struct {
	From  string
	To    string
	Event string
}

// Notification is delivered to listeners. State is the state name at the time
// of emission. Transition is set for KindTransition and Err for KindError.
type Notification[C any] struct {
	Kind       Kind
	MachineID  string
	State      string
	Context    C
	Transition *TransitionInfo
	Err        *Error
}

// Listener receives notifications. Listeners run synchronously inside the
// machine's step; calls they make back into the machine are queued and run
// once the current step is over.
type Listener[C any] func(n Notification[C])
