package scale

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

type recordingPublisher struct {
	published []measurement.Measurement
}

func (p *recordingPublisher) Publish(ctx context.Context, m measurement.Measurement) error {
	p.published = append(p.published, m)
	return nil
}

func newTestSyncer(store measurement.Store, publisher Publisher) *Syncer {
	return NewSyncer(Config{
		Users:        store,
		Measurements: store,
		Publisher:    publisher,
		Defaults:     DefaultDefaults(),
		Clock: func() time.Time {
			return replyTime
		},
	})
}

type closableMemStore struct {
	*memStore
}

func (closableMemStore) Close() error {
	return nil
}

func TestSync(t *testing.T) {
	t.Parallel()

	store := &memStore{users: []measurement.User{{ID: 7, Name: "erik", Birthyear: measurement.IntPointer(1980)}}}
	publisher := new(recordingPublisher)
	syncer := newTestSyncer(closableMemStore{store}, publisher)
	body := encodeUpload(2,
		Record{RecordID: 1, Impedance: 500, WeightGrams: 82400, UserID: 7, BodyFatPrimary: 180, DeviceTimestamp: 1717570000},
		Record{RecordID: 2, WeightGrams: 82300, UserID: 7},
	)
	body = append(body, 0x12, 0x34)

	reply, err := syncer.Sync(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, store.measurements, 1)
	m := store.measurements[0]
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, int64(7), m.UserID)
	assert.Equal(t, 82.4, m.Weight)
	require.NotNil(t, m.BodyFat)
	assert.Equal(t, 180.0, *m.BodyFat)
	assert.Equal(t, replyTime, m.Timestamp)
	assert.False(t, m.IsGuest)
	require.NotNil(t, m.Raw)
	assert.Equal(t, uint32(500), m.Raw.Impedance)
	assert.Equal(t, uint32(1717570000), m.Raw.DeviceTimestamp)
	assert.Equal(t, []measurement.Measurement{m}, publisher.published)

	require.Len(t, reply, ProfileEntrySize+4)
	e := parseEntry(t, reply[:ProfileEntrySize])
	assert.Equal(t, "ERIK                ", e.Name)
	assert.Equal(t, uint32(81900), e.MinTol)
	assert.Equal(t, uint32(82900), e.MaxTol)
	assert.Equal(t, uint32(2024-1980), e.Age)
}

func TestSyncGuest(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	syncer := newTestSyncer(closableMemStore{store}, nil)
	reply, err := syncer.Sync(context.Background(), encodeUpload(1, Record{WeightGrams: 55000, UserID: 42}))
	require.NoError(t, err)

	require.Len(t, store.measurements, 1)
	assert.True(t, store.measurements[0].IsGuest)
	assert.Equal(t, 0, store.updates)
	assert.Empty(t, store.users)

	e := parseEntry(t, reply[:ProfileEntrySize])
	assert.Equal(t, "EXAMPLE             ", e.Name)
	assert.Equal(t, uint32(1), e.Count)
}

func TestSyncWithoutRecords(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	syncer := newTestSyncer(closableMemStore{store}, nil)
	reply, err := syncer.Sync(context.Background(), encodeUpload(3))
	require.NoError(t, err)
	assert.Empty(t, store.measurements)
	assert.Len(t, reply, ProfileEntrySize+4)
}

func TestSyncTruncated(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	syncer := newTestSyncer(closableMemStore{store}, nil)
	_, err := syncer.Sync(context.Background(), make([]byte, 12))
	assert.ErrorIs(t, err, ErrTruncatedHeader)
	_, err = syncer.Sync(context.Background(), make([]byte, 40))
	assert.ErrorIs(t, err, ErrTruncatedFirmwareHeader)
	assert.Empty(t, store.measurements)
}

func TestSyncStoreFailure(t *testing.T) {
	t.Parallel()

	store := &failingStore{}
	syncer := NewSyncer(Config{
		Users:        store,
		Measurements: store,
		Defaults:     DefaultDefaults(),
	})
	reply, err := syncer.Sync(context.Background(), encodeUpload(1, Record{WeightGrams: 70000, UserID: 1}))
	require.NoError(t, err)
	require.Len(t, reply, ProfileEntrySize+4)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(reply[7:11]))
}
