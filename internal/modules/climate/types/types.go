package types

import "time"

// TimestampLayout is the display format of Reading.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Reading is one timestamped temperature sample.
type Reading struct {
	TemperatureC float64 `json:"temperature_c"`
	Timestamp    string  `json:"timestamp"`

	// Time is the instant Timestamp was formatted from, kept for charting and sinks.
	Time time.Time `json:"-"`
}

// Row is one line of the tabular projection of a window.
type Row struct {
	TemperatureC float64 `json:"temperature_c"`
	Timestamp    string  `json:"timestamp"`
	Regression   float64 `json:"regression"`
}

// Fit is an ordinary least-squares line over sample index.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At returns the fitted value at index i.
func (f Fit) At(i int) float64 {
	return f.Slope*float64(i) + f.Intercept
}

// ArchivedReading is a reading as stored in the sqlite archive.
type ArchivedReading struct {
	StationID    string    `json:"station_id"`
	Seq          uint64    `json:"seq"`
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperature_c"`
}
