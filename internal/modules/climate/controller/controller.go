package controller

import (
	"context"
	"net/http"

	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/types"
)

// SnapshotSource is satisfied by *feed.Feed.
type SnapshotSource interface {
	Snapshot() *feed.Snapshot
}

type ArchiveReader interface {
	GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.ArchivedReading, error)
	CountReadings(ctx context.Context, stationID string) (int, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	source    SnapshotSource
	archive   ArchiveReader
	stationID string
}

// NewClimateController serves the dashboard from source. archive may be nil,
// in which case the archive endpoint is not registered.
func NewClimateController(source SnapshotSource, archive ArchiveReader, stationID string) ClimateController {
	return &climateControllerImpl{source: source, archive: archive, stationID: stationID}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/live", c.handleLivePartial)
	mux.HandleFunc("GET /chart.svg", c.handleChartSVG)
	mux.HandleFunc("GET /api/v1/snapshot", c.handleSnapshot)
	mux.HandleFunc("GET /api/v1/latest", c.handleLatest)
	if c.archive != nil {
		mux.HandleFunc("GET /api/v1/archive", c.handleArchive)
	}
}
