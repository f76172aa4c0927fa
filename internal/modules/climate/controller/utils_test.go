package controller

import (
	"net/http/httptest"
	"testing"

	"climate-tracker/internal/modules/climate/feed"
)

func Test_parseLimitQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
		wantErr   bool
	}{
		{name: "default", query: "", wantLimit: 100},
		{name: "explicit", query: "?limit=25", wantLimit: 25},
		{name: "upper bound", query: "?limit=1000", wantLimit: 1000},
		{name: "too large", query: "?limit=1001", wantErr: true},
		{name: "zero", query: "?limit=0", wantErr: true},
		{name: "negative", query: "?limit=-3", wantErr: true},
		{name: "not a number", query: "?limit=ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/archive"+tt.query, nil)
			got, err := parseLimitQuery(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLimitQuery() = %d, nil; want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLimitQuery() error = %v", err)
			}
			if got != tt.wantLimit {
				t.Errorf("parseLimitQuery() = %d; want %d", got, tt.wantLimit)
			}
		})
	}
}

func Test_newSnapshotResponse(t *testing.T) {
	resp := newSnapshotResponse(nil)
	if resp.Table == nil || resp.Latest != nil || resp.TakenAt != nil {
		t.Errorf("nil snapshot response = %+v", resp)
	}

	resp = newSnapshotResponse(&feed.Snapshot{})
	if resp.Table == nil {
		t.Error("empty snapshot table must be non-nil")
	}
}
