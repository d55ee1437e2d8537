package plan

import (
	"encoding/json"
	"time"
)

// Duration mirrors the plan document's {secs, nanos} wire format (§6) rather
// than a bare integer, so execution-timeout / report-interval / backoff
// fields round-trip exactly through serialize→re-parse (§8 round-trip
// invariant).
type Duration struct {
	Secs  int64 `json:"secs"`
	Nanos int64 `json:"nanos"`
}

// AsTime converts the wire duration to a time.Duration.
func (d Duration) AsTime() time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

// DurationFromTime builds the wire representation from a time.Duration.
func DurationFromTime(d time.Duration) Duration {
	return Duration{
		Secs:  int64(d / time.Second),
		Nanos: int64(d % time.Second),
	}
}

var _ json.Marshaler = Duration{}
var _ json.Unmarshaler = (*Duration)(nil)

// MarshalJSON implements json.Marshaler explicitly so the zero value still
// serializes the full {secs,nanos} object instead of being omitted.
func (d Duration) MarshalJSON() ([]byte, error) {
	type alias Duration
	return json.Marshal(alias(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	type alias Duration
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Duration(a)
	return nil
}
