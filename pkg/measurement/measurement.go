package measurement

import (
	"time"
)

// Measurement is one stored weighing
type Measurement struct {
	ID        int64     `json:"id,omitempty"`
	UserID    int64     `json:"user_id"`
	Weight    float64   `json:"weight"`
	BodyFat   *float64  `json:"body_fat"`
	Timestamp time.Time `json:"timestamp"`
	IsGuest   bool      `json:"is_guest,omitempty"`
	Raw       *Raw      `json:"raw,omitempty"`
}

// Raw holds the record fields reported by the scale that are kept for diagnostics only
type Raw struct {
	RecordID         uint32 `json:"id2"`
	Impedance        uint32 `json:"imp"`
	Covariate        uint32 `json:"covar"`
	BodyFatSecondary uint32 `json:"fat2"`
	DeviceTimestamp  uint32 `json:"proto_ts"`
}

// Filter narrows down a measurement listing. A nil UserID matches every user.
type Filter struct {
	UserID *int64
}

func (f Filter) Match(m Measurement) bool {
	return f.UserID == nil || *f.UserID == m.UserID
}

// Latest returns the measurement with the most recent timestamp
func Latest(measurements []Measurement) (Measurement, bool) {
	if len(measurements) == 0 {
		return Measurement{}, false
	}
	latest := measurements[0]
	for _, m := range measurements[1:] {
		if m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest, true
}

// NextMeasurementID returns an id one larger than the largest id in use
func NextMeasurementID(measurements []Measurement) int64 {
	var max int64
	for _, m := range measurements {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}

func Float64Pointer(v float64) *float64 {
	return &v
}
