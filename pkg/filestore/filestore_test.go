package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(Config{Dir: dir})
	require.NoError(t, err)
	return s, dir
}

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, dir := newStore(t)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	err = s.SaveUsers(ctx, []measurement.User{
		{ID: 1, Name: "anna", Height: measurement.IntPointer(1700)},
		{ID: 2, Name: "bert"},
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, UsersFile))

	u, err := s.FindUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Name)
	require.NotNil(t, u.Height)
	assert.Equal(t, 1700, *u.Height)

	_, err = s.FindUser(ctx, 3)
	assert.ErrorIs(t, err, measurement.ErrNotFound)

	err = s.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
		return users[1:], nil
	})
	require.NoError(t, err)
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bert", users[0].Name)
}

func TestUpdateUsersAbort(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.SaveUsers(ctx, []measurement.User{{ID: 1, Name: "anna"}}))

	errAbort := errors.New("abort")
	err := s.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
		return nil, errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestMeasurements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	ts := time.Date(2024, time.May, 1, 6, 45, 0, 0, time.UTC)

	m, err := s.AppendMeasurement(ctx, measurement.Measurement{UserID: 1, Weight: 70.5, Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	m, err = s.AppendMeasurement(ctx, measurement.Measurement{
		UserID:    2,
		Weight:    82.4,
		Timestamp: ts.Add(time.Hour),
		IsGuest:   true,
		Raw:       &measurement.Raw{Impedance: 480},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)

	all, err := s.ListMeasurements(ctx, measurement.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].IsGuest)
	require.NotNil(t, all[1].Raw)
	assert.Equal(t, uint32(480), all[1].Raw.Impedance)
	assert.True(t, ts.Equal(all[0].Timestamp))

	id := int64(2)
	filtered, err := s.ListMeasurements(ctx, measurement.Filter{UserID: &id})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 82.4, filtered[0].Weight)
}

func TestCorruptFileFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MeasurementsFile), []byte("[{"), 0o644))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	_, err = s.FindUser(ctx, 1)
	assert.ErrorIs(t, err, measurement.ErrNotFound)

	m, err := s.AppendMeasurement(ctx, measurement.Measurement{UserID: 1, Weight: 60})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)

	backups, err := filepath.Glob(filepath.Join(dir, UsersFile+".corrupt-*"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
	backups, err = filepath.Glob(filepath.Join(dir, MeasurementsFile+".corrupt-*"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

const legacyUsers = `[
  {
    "id": 7,
    "name": "anna",
    "birthyear": 1985,
    "gender": "f",
    "height": 1680,
    "created": "2024-03-01T08:00:00.123456",
    "min_tolerance": 61500,
    "max_tolerance": 62500
  }
]`

const legacyMeasurements = `[
  {
    "user_id": 7,
    "weight": 62.0,
    "body_fat": 0,
    "timestamp": "2024-03-01T08:00:00.123456",
    "is_guest": false,
    "raw": {"id2": 1, "imp": 520, "covar": 0, "fat2": 0, "proto_ts": 1709280000}
  },
  {
    "id": 2,
    "user_id": 7,
    "weight": 61.8,
    "body_fat": null,
    "timestamp": "2024-03-02T08:00:00"
  }
]`

func TestLegacyDataFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, dir := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile), []byte(legacyUsers), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MeasurementsFile), []byte(legacyMeasurements), 0o644))

	u, err := s.FindUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Name)
	assert.True(t, time.Date(2024, time.March, 1, 8, 0, 0, 123456000, time.Local).Equal(u.Created))

	m, err := s.AppendMeasurement(ctx, measurement.Measurement{UserID: 7, Weight: 61.5, Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.ID)
	ms, err := s.ListMeasurements(ctx, measurement.Filter{})
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, 62.0, ms[0].Weight)
	assert.Equal(t, 61.8, ms[1].Weight)

	err = s.UpdateUsers(ctx, func(users []measurement.User) ([]measurement.User, error) {
		users[0].MaxTolerance = measurement.IntPointer(62000)
		return users, nil
	})
	require.NoError(t, err)
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, u.Created.Equal(users[0].Created))

	backups, err := filepath.Glob(filepath.Join(dir, "*.corrupt-*"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestConcurrentAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AppendMeasurement(ctx, measurement.Measurement{UserID: int64(i), Weight: 70})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	all, err := s.ListMeasurements(ctx, measurement.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 20)
	seen := make(map[int64]bool)
	for _, m := range all {
		seen[m.ID] = true
	}
	assert.Len(t, seen, 20)
}
