package tape

import (
	"time"

	"github.com/google/uuid"

	"finhacker/internal/events"
	"finhacker/internal/monitor"
)

type Kind string

const (
	KindTick  Kind = "tick"
	KindEvent Kind = "event"
)

// Run is computed once at startup and stamped into every row.
type Run struct {
	ID    string
	Start time.Time
}

func NewRun(now time.Time) Run {
	return Run{ID: uuid.NewString(), Start: time.UnixMilli(now.UnixMilli()).UTC()}
}

// Record is one tape row. Tick rows use the quote fields; event rows use
// EventType and the result text.
type Record struct {
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`

	Seq       int64   `json:"seq,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Change    float64 `json:"change,omitempty"`
	Direction string  `json:"direction,omitempty"`

	EventType string `json:"event_type,omitempty"`
	Event     string `json:"event,omitempty"`
	Analysis  string `json:"analysis,omitempty"`
	Impact    string `json:"impact,omitempty"`
}

// TickRecords flattens a snapshot into one row per asset.
func TickRecords(s monitor.Snapshot) []Record {
	out := make([]Record, 0, len(s.Assets))
	for _, a := range s.Assets {
		out = append(out, Record{
			Kind:      KindTick,
			At:        s.At,
			Seq:       s.Seq,
			Symbol:    a.Symbol,
			Price:     a.Price,
			Change:    a.Change,
			Direction: a.Direction(),
		})
	}
	return out
}

func EventRecord(at time.Time, t events.Type, r events.Result) Record {
	return Record{
		Kind:      KindEvent,
		At:        at,
		EventType: string(t),
		Event:     r.Event,
		Analysis:  r.Analysis,
		Impact:    r.Impact,
	}
}
