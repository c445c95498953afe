package scale

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/niktheblak/helvetic/pkg/measurement"
)

// Publisher forwards stored measurements to other systems
type Publisher interface {
	Publish(ctx context.Context, m measurement.Measurement) error
}

type Config struct {
	Users        measurement.UserDirectory
	Measurements measurement.MeasurementStore
	// Publisher is optional
	Publisher Publisher
	Defaults  Defaults
	Logger    *slog.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Syncer handles scale uploads end to end
type Syncer struct {
	users        measurement.UserDirectory
	measurements measurement.MeasurementStore
	publisher    Publisher
	defaults     Defaults
	logger       *slog.Logger
	clock        func() time.Time
}

func NewSyncer(cfg Config) *Syncer {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Syncer{
		users:        cfg.Users,
		measurements: cfg.Measurements,
		publisher:    cfg.Publisher,
		defaults:     cfg.Defaults,
		logger:       cfg.Logger,
		clock:        cfg.Clock,
	}
}

// Ingest converts the record kept from an upload into a measurement received at now
func Ingest(r Record, isGuest bool, now time.Time) measurement.Measurement {
	return measurement.Measurement{
		UserID:    int64(r.UserID),
		Weight:    r.WeightKg(),
		BodyFat:   measurement.Float64Pointer(float64(r.BodyFatPrimary)),
		Timestamp: now,
		IsGuest:   isGuest,
		Raw: &measurement.Raw{
			RecordID:         r.RecordID,
			Impedance:        r.Impedance,
			Covariate:        r.Covariate,
			BodyFatSecondary: r.BodyFatSecondary,
			DeviceTimestamp:  r.DeviceTimestamp,
		},
	}
}

// Sync decodes an upload, stores its first measurement, refreshes the
// tolerance band of the measured user and returns the profile reply. Only
// decoding errors are returned; storage failures are logged and the reply is
// built from whatever users could be read.
func (s *Syncer) Sync(ctx context.Context, body []byte) ([]byte, error) {
	upload, err := Decode(body)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Invalid upload", slog.Int("length", len(body)), slog.Any("error", err))
		return nil, err
	}
	s.logUpload(ctx, upload)
	now := s.clock()
	if rec, ok := upload.First(); ok {
		s.ingest(ctx, rec, now)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to list users", slog.Any("error", err))
		users = nil
	}
	reply := EncodeReply(users, s.defaults, now)
	s.logger.LogAttrs(ctx, slog.LevelDebug, "Profile reply", slog.Int("users", len(users)), slog.Int("length", len(reply)))
	return reply, nil
}

func (s *Syncer) ingest(ctx context.Context, rec Record, now time.Time) {
	isGuest := false
	_, err := s.users.FindUser(ctx, int64(rec.UserID))
	switch {
	case errors.Is(err, measurement.ErrNotFound):
		isGuest = true
	case err != nil:
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to look up user", slog.Uint64("user_id", uint64(rec.UserID)), slog.Any("error", err))
		isGuest = true
	}
	m, err := s.measurements.AppendMeasurement(ctx, Ingest(rec, isGuest, now))
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to store measurement", slog.Any("error", err))
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "Stored measurement",
		slog.Int64("id", m.ID),
		slog.Int64("user_id", m.UserID),
		slog.Float64("weight", m.Weight),
		slog.Bool("guest", m.IsGuest),
	)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, m); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "Failed to publish measurement", slog.Any("error", err))
		}
	}
	u, ok, err := UpdateTolerance(ctx, s.users, m)
	switch {
	case err != nil:
		s.logger.LogAttrs(ctx, slog.LevelError, "Failed to update tolerance", slog.Int64("user_id", m.UserID), slog.Any("error", err))
	case ok:
		s.logger.LogAttrs(ctx, slog.LevelInfo, "Updated tolerance",
			slog.String("name", u.Name),
			slog.Int("min_tolerance", *u.MinTolerance),
			slog.Int("max_tolerance", *u.MaxTolerance),
		)
	}
}

func (s *Syncer) logUpload(ctx context.Context, u Upload) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "Upload",
		slog.Uint64("protocol_version", uint64(u.Device.ProtocolVersion)),
		slog.Uint64("battery", uint64(u.Device.BatteryPercent)),
		slog.String("mac", net.HardwareAddr(u.Device.MAC[:]).String()),
		slog.String("auth_code", hex.EncodeToString(u.Device.AuthCode[:])),
		slog.Uint64("firmware", uint64(u.Firmware.FirmwareVersion)),
		slog.Uint64("device_timestamp", uint64(u.Firmware.DeviceTimestamp)),
		slog.Uint64("count", uint64(u.Firmware.MeasurementCount)),
	)
	for _, r := range u.Records {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "Record",
			slog.Uint64("id2", uint64(r.RecordID)),
			slog.Uint64("impedance", uint64(r.Impedance)),
			slog.Float64("weight", r.WeightKg()),
			slog.Uint64("device_timestamp", uint64(r.DeviceTimestamp)),
			slog.Uint64("user_id", uint64(r.UserID)),
			slog.Uint64("fat1", uint64(r.BodyFatPrimary)),
			slog.Uint64("covariate", uint64(r.Covariate)),
			slog.Uint64("fat2", uint64(r.BodyFatSecondary)),
		)
	}
	if u.Truncated() {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "Not enough bytes to decode all measurements",
			slog.Int("decoded", len(u.Records)),
			slog.Uint64("announced", uint64(u.Firmware.MeasurementCount)),
		)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "All weights in upload", slog.Any("weights", u.WeightsKg()), slog.String("trailer", hex.EncodeToString(u.Trailer)))
}
