package measurement

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts accepted for stored timestamps. Older data files carry local
// wall-clock times without a UTC offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an RFC 3339 timestamp or a timestamp without an
// offset. The latter is read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// jsonTime decodes timestamps with ParseTimestamp. Null leaves the zero time.
type jsonTime time.Time

func (t *jsonTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = jsonTime(ts)
	return nil
}

func (u *User) UnmarshalJSON(data []byte) error {
	type user User
	aux := struct {
		*user
		Created jsonTime `json:"created"`
	}{user: (*user)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.Created = time.Time(aux.Created)
	return nil
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	type measurement Measurement
	aux := struct {
		*measurement
		Timestamp jsonTime `json:"timestamp"`
	}{measurement: (*measurement)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Timestamp = time.Time(aux.Timestamp)
	return nil
}
