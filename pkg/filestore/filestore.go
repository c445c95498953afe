// Package filestore keeps users and measurements in two JSON files.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

const (
	UsersFile        = "users.json"
	MeasurementsFile = "measurements.json"
)

type Config struct {
	Dir    string
	Logger *slog.Logger
}

// Store is a measurement.Store backed by JSON files. Every operation reads
// the whole file and writes it back while holding a single lock.
type Store struct {
	mu               sync.Mutex
	usersPath        string
	measurementsPath string
	logger           *slog.Logger
}

func New(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Dir == "" {
		cfg.Dir = "data"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		usersPath:        filepath.Join(cfg.Dir, UsersFile),
		measurementsPath: filepath.Join(cfg.Dir, MeasurementsFile),
		logger:           cfg.Logger,
	}, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]measurement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load[measurement.User](ctx, s, s.usersPath), nil
}

func (s *Store) FindUser(ctx context.Context, id int64) (measurement.User, error) {
	users, _ := s.ListUsers(ctx)
	if i := measurement.IndexOfUser(users, id); i >= 0 {
		return users[i], nil
	}
	return measurement.User{}, fmt.Errorf("user %d: %w", id, measurement.ErrNotFound)
}

func (s *Store) SaveUsers(ctx context.Context, users []measurement.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return save(s.usersPath, users)
}

func (s *Store) UpdateUsers(ctx context.Context, fn measurement.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := fn(load[measurement.User](ctx, s, s.usersPath))
	if err != nil {
		return err
	}
	return save(s.usersPath, users)
}

func (s *Store) AppendMeasurement(ctx context.Context, m measurement.Measurement) (measurement.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	measurements := load[measurement.Measurement](ctx, s, s.measurementsPath)
	m.ID = measurement.NextMeasurementID(measurements)
	measurements = append(measurements, m)
	if err := save(s.measurementsPath, measurements); err != nil {
		return measurement.Measurement{}, err
	}
	return m, nil
}

func (s *Store) ListMeasurements(ctx context.Context, filter measurement.Filter) ([]measurement.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := load[measurement.Measurement](ctx, s, s.measurementsPath)
	var measurements []measurement.Measurement
	for _, m := range all {
		if filter.Match(m) {
			measurements = append(measurements, m)
		}
	}
	return measurements, nil
}

func (s *Store) Close() error {
	return nil
}

// load decodes the collection stored in path. A missing or unreadable file
// yields an empty collection. A file that cannot be decoded is moved aside
// so that the next save does not overwrite it.
func load[T any](ctx context.Context, s *Store, path string) []T {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Could not read data file, using empty collection", slog.String("path", path), slog.Any("error", err))
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		backup := corruptPath(path, time.Now())
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Could not decode data file, using empty collection",
			slog.String("path", path),
			slog.String("backup", backup),
			slog.Any("error", err),
		)
		if err := os.Rename(path, backup); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "Failed to move corrupt data file", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	}
	return items
}

func corruptPath(path string, now time.Time) string {
	return fmt.Sprintf("%s.corrupt-%s", path, now.UTC().Format("20060102T150405.000000000"))
}

// save replaces path atomically
func save[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
