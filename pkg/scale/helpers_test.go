package scale

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

type memStore struct {
	mu           sync.Mutex
	users        []measurement.User
	measurements []measurement.Measurement
	updates      int
}

func (s *memStore) ListUsers(ctx context.Context) ([]measurement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]measurement.User(nil), s.users...), nil
}

func (s *memStore) FindUser(ctx context.Context, id int64) (measurement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := measurement.IndexOfUser(s.users, id); i >= 0 {
		return s.users[i], nil
	}
	return measurement.User{}, measurement.ErrNotFound
}

func (s *memStore) SaveUsers(ctx context.Context, users []measurement.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	return nil
}

func (s *memStore) UpdateUsers(ctx context.Context, fn measurement.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := fn(append([]measurement.User(nil), s.users...))
	if err != nil {
		return err
	}
	s.users = users
	s.updates++
	return nil
}

func (s *memStore) AppendMeasurement(ctx context.Context, m measurement.Measurement) (measurement.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = measurement.NextMeasurementID(s.measurements)
	s.measurements = append(s.measurements, m)
	return m, nil
}

func (s *memStore) ListMeasurements(ctx context.Context, filter measurement.Filter) ([]measurement.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []measurement.Measurement
	for _, m := range s.measurements {
		if filter.Match(m) {
			res = append(res, m)
		}
	}
	return res, nil
}

type failingStore struct {
	memStore
}

func (s *failingStore) ListUsers(ctx context.Context) ([]measurement.User, error) {
	return nil, errors.New("users.json: unexpected end of JSON input")
}

func (s *failingStore) FindUser(ctx context.Context, id int64) (measurement.User, error) {
	return measurement.User{}, errors.New("users.json: unexpected end of JSON input")
}

func (s *failingStore) AppendMeasurement(ctx context.Context, m measurement.Measurement) (measurement.Measurement, error) {
	return measurement.Measurement{}, errors.New("measurements.json: permission denied")
}

func encodeHeaders(count uint32) []byte {
	buf := make([]byte, DeviceHeaderSize+FirmwareHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], 3)
	binary.LittleEndian.PutUint32(buf[4:8], 87)
	copy(buf[8:14], []byte{0x00, 0x24, 0xe4, 0x12, 0x34, 0x56})
	copy(buf[14:30], []byte("0123456789abcdef"))
	binary.LittleEndian.PutUint32(buf[30:34], 39)
	binary.LittleEndian.PutUint32(buf[34:38], 0)
	binary.LittleEndian.PutUint32(buf[38:42], 1700000000)
	binary.LittleEndian.PutUint32(buf[42:46], count)
	return buf
}

func encodeRecord(r Record) []byte {
	buf := make([]byte, RecordSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], r.RecordID)
	le.PutUint32(buf[4:8], r.Impedance)
	le.PutUint32(buf[8:12], r.WeightGrams)
	le.PutUint32(buf[12:16], r.DeviceTimestamp)
	le.PutUint32(buf[16:20], r.UserID)
	le.PutUint32(buf[20:24], r.BodyFatPrimary)
	le.PutUint32(buf[24:28], r.Covariate)
	le.PutUint32(buf[28:32], r.BodyFatSecondary)
	return buf
}

func encodeUpload(count uint32, records ...Record) []byte {
	buf := encodeHeaders(count)
	for _, r := range records {
		buf = append(buf, encodeRecord(r)...)
	}
	return buf
}
