package status

// Status tracks the lifecycle of a single TCP connection.
type Status int32

const (
	Connecting Status = iota
	Open
	Closed
	Failed
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the connection can never carry data again.
func (s Status) Terminal() bool {
	return s == Closed || s == Failed
}
