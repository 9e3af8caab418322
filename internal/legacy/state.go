package legacy

// State is the lifecycle of the analysis panel.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	}
	return "unknown"
}

// Request is one in-flight analysis submit. Only the completion carrying the
// most recent token is applied.
type Request struct {
	Token  string
	Ticker string
	Tab    string
}

type Response struct {
	Token  string
	Status int
	Body   string
	Err    error
}

func (r Response) OK() bool { return r.Err == nil && r.Status >= 200 && r.Status < 300 }
