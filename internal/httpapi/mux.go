package httpapi

import (
	"database/sql"
	"net/http"
	"time"
)

// HealthDeps are the dependencies /healthz reports on. DB and MQTT may be nil.
type HealthDeps struct {
	Feed   Liveness
	MaxAge time.Duration
	DB     *sql.DB
	MQTT   ConnectionStatus
}

func NewMux(deps HealthDeps) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, &healthcheckerImpl{
		feed:      deps.Feed,
		maxAge:    deps.MaxAge,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		now:       time.Now,
		dbTimeout: 2 * time.Second,
	})
	return mux
}
