package psql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

const (
	userColumns        = "id, name, birthyear, gender, height, min_tolerance, max_tolerance, created"
	measurementColumns = "id, user_id, weight, body_fat, measured_at, is_guest, raw"
)

type Config struct {
	URL      string
	MaxConns int32
	Logger   *slog.Logger
}

// Scanner is implemented by pgx.Row and pgx.Rows
type Scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is a measurement.Store backed by PostgreSQL
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to the database described by cfg
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Store{
		pool:   pool,
		logger: cfg.Logger,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListUsers(ctx context.Context) ([]measurement.User, error) {
	return listUsers(ctx, s.pool)
}

func (s *Store) FindUser(ctx context.Context, id int64) (measurement.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := CollectUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, fmt.Errorf("user %d: %w", id, measurement.ErrNotFound)
	}
	return u, err
}

func (s *Store) SaveUsers(ctx context.Context, users []measurement.User) error {
	return s.UpdateUsers(ctx, func([]measurement.User) ([]measurement.User, error) {
		return users, nil
	})
}

// UpdateUsers rewrites the users table in one transaction. The table is
// locked for the duration so concurrent updates are serialized.
func (s *Store) UpdateUsers(ctx context.Context, fn measurement.UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, "LOCK TABLE users IN EXCLUSIVE MODE"); err != nil {
		return err
	}
	users, err := listUsers(ctx, tx)
	if err != nil {
		return err
	}
	users, err = fn(users)
	if err != nil {
		return err
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	if _, err := tx.Exec(ctx, "DELETE FROM users WHERE NOT (id = ANY($1))", ids); err != nil {
		return err
	}
	batch := new(pgx.Batch)
	for _, u := range users {
		if u.Created.IsZero() {
			u.Created = time.Now()
		}
		batch.Queue(upsertUser, u.ID, u.Name, u.Birthyear, u.Gender, u.Height, u.MinTolerance, u.MaxTolerance, u.Created)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "Saved users", slog.Int("count", len(users)))
	return tx.Commit(ctx)
}

const upsertUser = `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		birthyear = EXCLUDED.birthyear,
		gender = EXCLUDED.gender,
		height = EXCLUDED.height,
		min_tolerance = EXCLUDED.min_tolerance,
		max_tolerance = EXCLUDED.max_tolerance
`

func (s *Store) AppendMeasurement(ctx context.Context, m measurement.Measurement) (measurement.Measurement, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO measurements (user_id, weight, body_fat, measured_at, is_guest, raw)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.UserID, m.Weight, m.BodyFat, m.Timestamp, m.IsGuest, m.Raw).Scan(&m.ID)
	if err != nil {
		return measurement.Measurement{}, err
	}
	return m, nil
}

func (s *Store) ListMeasurements(ctx context.Context, filter measurement.Filter) ([]measurement.Measurement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+measurementColumns+`
		FROM measurements
		WHERE $1::BIGINT IS NULL OR user_id = $1
		ORDER BY id
	`, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var measurements []measurement.Measurement
	for rows.Next() {
		m, err := CollectMeasurement(rows)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func listUsers(ctx context.Context, q querier) ([]measurement.User, error) {
	rows, err := q.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []measurement.User
	for rows.Next() {
		u, err := CollectUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CollectUser scans a row selected with userColumns
func CollectUser(res Scanner) (measurement.User, error) {
	var u measurement.User
	err := res.Scan(&u.ID, &u.Name, &u.Birthyear, &u.Gender, &u.Height, &u.MinTolerance, &u.MaxTolerance, &u.Created)
	return u, err
}

// CollectMeasurement scans a row selected with measurementColumns
func CollectMeasurement(res Scanner) (measurement.Measurement, error) {
	var m measurement.Measurement
	err := res.Scan(&m.ID, &m.UserID, &m.Weight, &m.BodyFat, &m.Timestamp, &m.IsGuest, &m.Raw)
	return m, err
}
