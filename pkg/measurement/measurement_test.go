package measurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatest(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	ms := []Measurement{
		{ID: 1, Weight: 80.1, Timestamp: base},
		{ID: 2, Weight: 80.4, Timestamp: base.Add(48 * time.Hour)},
		{ID: 3, Weight: 79.9, Timestamp: base.Add(24 * time.Hour)},
	}
	m, ok := Latest(ms)
	assert.True(t, ok)
	assert.Equal(t, int64(2), m.ID)

	_, ok = Latest(nil)
	assert.False(t, ok)
}

func TestNextIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1), NextUserID(nil))
	assert.Equal(t, int64(8), NextUserID([]User{{ID: 3}, {ID: 7}, {ID: 1}}))
	assert.Equal(t, int64(1), NextMeasurementID(nil))
	assert.Equal(t, int64(5), NextMeasurementID([]Measurement{{ID: 4}, {}}))
}

func TestFilter(t *testing.T) {
	t.Parallel()

	id := int64(7)
	assert.True(t, Filter{}.Match(Measurement{UserID: 3}))
	assert.True(t, Filter{UserID: &id}.Match(Measurement{UserID: 7}))
	assert.False(t, Filter{UserID: &id}.Match(Measurement{UserID: 3}))
}

func TestIndexOfUser(t *testing.T) {
	t.Parallel()

	users := []User{{ID: 2}, {ID: 9}}
	assert.Equal(t, 1, IndexOfUser(users, 9))
	assert.Equal(t, -1, IndexOfUser(users, 4))
}
