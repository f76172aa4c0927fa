package climate

import (
	"database/sql"
	"log/slog"
	"net/http"

	"climate-tracker/internal/modules/climate/controller"
	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/repository"
	"climate-tracker/internal/modules/climate/service"
)

// RegisterFeature wires the dashboard routes and the reading sinks onto f.
// db and publisher are optional; nil disables the archive and MQTT sinks.
func RegisterFeature(mux *http.ServeMux, f *feed.Feed, db *sql.DB, publisher service.TelemetryPublisher, stationID string, logger *slog.Logger) {
	var archive repository.ArchiveRepository
	if db != nil {
		archive = repository.NewRepository(db)
	}

	// Typed nils must not reach the interfaces below.
	var (
		archiveSink   service.Archive
		archiveReader controller.ArchiveReader
	)
	if archive != nil {
		archiveSink = archive
		archiveReader = archive
	}

	service.NewService(stationID, archiveSink, publisher, logger).Register(f)
	controller.NewClimateController(f, archiveReader, stationID).RegisterRoutes(mux)
}
