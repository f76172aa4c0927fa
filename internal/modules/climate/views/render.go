package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"climate-tracker/internal/modules/climate/feed"
	"climate-tracker/internal/modules/climate/types"
)

//go:embed templates
var viewsFS embed.FS

const (
	pageTitle = "Live Climate Tracker"
	repoURL   = "https://github.com/mindy0cruz/cintel-05-cintel-"
	repoLabel = "Project on GitHub"
)

var dashboardTmpl *template.Template

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	dashboardTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// LiveData is the view model for the auto-refreshing fragment. Every field is
// derived from a single feed snapshot.
type LiveData struct {
	Seq            uint64
	Temperature    string
	Timestamp      string
	Rows           []types.Row
	ChartSVG       template.HTML
	RefreshSeconds int
}

type DashboardData struct {
	Title     string
	RepoURL   string
	RepoLabel string
	Live      *LiveData
}

// FormatTemperature renders a reading value for the value box.
func FormatTemperature(c float64) string {
	return fmt.Sprintf("%.1f °C", c)
}

// NewLiveData derives all four display regions from snap.
func NewLiveData(snap *feed.Snapshot) (*LiveData, error) {
	data := &LiveData{
		Temperature:    "--",
		Timestamp:      "--",
		RefreshSeconds: int(feed.Period.Seconds()),
	}
	if snap == nil {
		snap = &feed.Snapshot{}
	}
	plot, err := RenderChart(snap.Window, snap.Table)
	if err != nil {
		return nil, err
	}
	data.Seq = snap.Seq
	data.Rows = snap.Table
	// SVG comes from our own renderer, not from user input.
	data.ChartSVG = template.HTML(plot.SVG)
	if snap.Latest != nil {
		data.Temperature = FormatTemperature(snap.Latest.TemperatureC)
		data.Timestamp = snap.Latest.Timestamp
	}
	return data, nil
}

// NewDashboardData wraps live data with the static page chrome.
func NewDashboardData(live *LiveData) *DashboardData {
	return &DashboardData{
		Title:     pageTitle,
		RepoURL:   repoURL,
		RepoLabel: repoLabel,
		Live:      live,
	}
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderLivePartial executes only the live partial into w.
// Use for HTMX fragment refresh.
func RenderLivePartial(w io.Writer, data *LiveData) error {
	if dashboardTmpl == nil {
		return errors.New("live template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/live.html", data)
}
