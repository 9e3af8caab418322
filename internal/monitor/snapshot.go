package monitor

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a point-in-time copy of every asset.
type Snapshot struct {
	Seq    int64     `json:"seq"`
	At     time.Time `json:"at"`
	Assets []Asset   `json:"assets"`
}

func (s Snapshot) Find(key string) (Asset, bool) {
	for _, a := range s.Assets {
		if a.Key == key {
			return a, true
		}
	}
	return Asset{}, false
}

func (s Snapshot) Pulse() Pulse {
	p := Pulse{
		Entries:   make(map[string]PulseEntry, len(s.Assets)),
		Timestamp: s.At.Format(time.RFC3339),
	}
	for _, a := range s.Assets {
		p.Entries[a.Key] = PulseEntry{
			Price:     Round2(a.Price),
			Change:    Round2(a.Change),
			Direction: a.Direction(),
		}
	}
	return p
}

type PulseEntry struct {
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	Direction string  `json:"change_direction"`
}

// Pulse is the /market_data payload: one object per asset key plus a
// top-level "timestamp".
type Pulse struct {
	Entries   map[string]PulseEntry
	Timestamp string
}

func (p Pulse) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Entries)+1)
	for k, v := range p.Entries {
		m[k] = v
	}
	m["timestamp"] = p.Timestamp
	return json.Marshal(m)
}

func (p *Pulse) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Entries = make(map[string]PulseEntry, len(raw))
	p.Timestamp = ""
	for k, v := range raw {
		if k == "timestamp" {
			if err := json.Unmarshal(v, &p.Timestamp); err != nil {
				return fmt.Errorf("timestamp: %w", err)
			}
			continue
		}
		var e PulseEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		p.Entries[k] = e
	}
	return nil
}
