package controller

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"climate-tracker/internal/modules/climate/views"
	"climate-tracker/internal/utils"
)

func (c *climateControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	live, err := views.NewLiveData(c.source.Snapshot())
	if err != nil {
		slog.Error("dashboard: build live data failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	err = utils.WriteBuffered(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return views.RenderDashboard(buf, views.NewDashboardData(live))
	})
	if err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *climateControllerImpl) handleLivePartial(w http.ResponseWriter, r *http.Request) {
	live, err := views.NewLiveData(c.source.Snapshot())
	if err != nil {
		slog.Error("live partial: build live data failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	err = utils.WriteBuffered(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return views.RenderLivePartial(buf, live)
	})
	if err != nil {
		slog.Error("live partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *climateControllerImpl) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	snap := c.source.Snapshot()
	plot, err := views.RenderChart(snap.Window, snap.Table)
	if err != nil {
		slog.Error("chart render failed", "seq", snap.Seq, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(plot.SVG); err != nil {
		slog.Error("chart: write response failed", "error", err)
	}
}

func (c *climateControllerImpl) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, newSnapshotResponse(c.source.Snapshot()))
}

func (c *climateControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap := c.source.Snapshot()
	if snap.Empty() {
		utils.WriteError(w, http.StatusNotFound, "no readings yet")
		return
	}
	utils.WriteJSON(w, http.StatusOK, snap.Latest)
}

func (c *climateControllerImpl) handleArchive(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.archive.GetLatestReadings(r.Context(), c.stationID, limit)
	if err != nil {
		slog.Error("archive: get latest readings failed", "station_id", c.stationID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load archive")
		return
	}
	total, err := c.archive.CountReadings(r.Context(), c.stationID)
	if err != nil {
		slog.Error("archive: count readings failed", "station_id", c.stationID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load archive")
		return
	}
	w.Header().Set(totalCountHeader, strconv.Itoa(total))
	utils.WriteJSON(w, http.StatusOK, readings)
}
