package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/types"
)

// Archive is the slice of the repository the archive sink needs.
type Archive interface {
	InsertReading(ctx context.Context, stationID string, seq uint64, r types.Reading) error
}

// TelemetryPublisher is the slice of the MQTT publisher the telemetry sink needs.
type TelemetryPublisher interface {
	PublishReading(ctx context.Context, stationID string, seq uint64, at time.Time, temperatureC float64) error
}

// Subscriber is satisfied by *feed.Feed.
type Subscriber interface {
	Subscribe(h feed.Handler)
}

type Service struct {
	stationID string
	archive   Archive
	publisher TelemetryPublisher
	logger    *slog.Logger
}

// NewService builds the sinks for stationID. Either sink may be nil.
func NewService(stationID string, archive Archive, publisher TelemetryPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{stationID: stationID, archive: archive, publisher: publisher, logger: logger}
}

// Register subscribes the configured sinks to f, archive first.
func (s *Service) Register(f Subscriber) {
	if s.archive != nil {
		f.Subscribe(s.archiveReading)
		s.logger.Info("archive sink enabled", "station_id", s.stationID)
	}
	if s.publisher != nil {
		f.Subscribe(s.publishReading)
		s.logger.Info("mqtt sink enabled", "station_id", s.stationID)
	}
}

func (s *Service) archiveReading(ctx context.Context, snap *feed.Snapshot) error {
	if snap.Latest == nil {
		return nil
	}
	if err := s.archive.InsertReading(ctx, s.stationID, snap.Seq, *snap.Latest); err != nil {
		return fmt.Errorf("archive reading for %s: %w", s.stationID, err)
	}
	s.logger.Debug("archived reading", "station_id", s.stationID, "seq", snap.Seq)
	return nil
}

func (s *Service) publishReading(ctx context.Context, snap *feed.Snapshot) error {
	if snap.Latest == nil {
		return nil
	}
	r := snap.Latest
	if err := s.publisher.PublishReading(ctx, s.stationID, snap.Seq, r.Time, r.TemperatureC); err != nil {
		return fmt.Errorf("publish reading for %s: %w", s.stationID, err)
	}
	return nil
}
