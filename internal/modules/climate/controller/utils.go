package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/types"
)

const (
	defaultArchiveLimit = 100
	maxArchiveLimit     = 1000

	// totalCountHeader carries the number of archived readings for the station.
	totalCountHeader = "X-Total-Count"
)

func parseLimitQuery(r *http.Request) (limit int, err error) {
	limit = defaultArchiveLimit
	s := r.URL.Query().Get("limit")
	if s == "" {
		return limit, nil
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxArchiveLimit {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}

type snapshotResponse struct {
	Seq     uint64         `json:"seq"`
	Latest  *types.Reading `json:"latest"`
	Table   []types.Row    `json:"table"`
	Trend   types.Fit      `json:"trend"`
	TakenAt *time.Time     `json:"taken_at,omitempty"`
}

func newSnapshotResponse(snap *feed.Snapshot) snapshotResponse {
	resp := snapshotResponse{Table: []types.Row{}}
	if snap == nil {
		return resp
	}
	resp.Seq = snap.Seq
	resp.Latest = snap.Latest
	resp.Trend = snap.Fit
	if len(snap.Table) > 0 {
		resp.Table = snap.Table
	}
	if !snap.TakenAt.IsZero() {
		t := snap.TakenAt
		resp.TakenAt = &t
	}
	return resp
}
