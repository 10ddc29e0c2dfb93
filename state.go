package reactor

// State is the lifecycle stage of a Reactor. It only moves forward.
type State int32

const (
	StateIdle State = iota
	StateLooping
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLooping:
		return "looping"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
