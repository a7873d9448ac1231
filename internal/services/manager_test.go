package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/binding"
	"github.com/j-veylop/celltrack-tui/internal/config"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

func tinyPNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.String()
}

// newTestBackend serves a two-project backend with one three-image project.
func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()
	pngBody := tinyPNG(t)
	var mu sync.Mutex
	titles := `"A", "B"`
	images := `"None", "projects/B/cell_images/1/image_input.png"`
	descs := `"", "second"`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/")
		switch endpoint {
		case backend.EndpointProjectsData:
			mu.Lock()
			body := `{"Project Titles": [` + titles + `], "Project Images": [` + images + `], "Project Descriptions": [` + descs + `]}`
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		case backend.EndpointCoverImage, backend.EndpointSpecificImage:
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.WriteString(w, pngBody)
		case backend.EndpointConditionAverage:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"Success": true, "Parameter Dictionary": {
				"Area": [{"Date": "2024-01-01", "Value": 1}, {"Date": "2024-01-02", "Value": 2}, {"Date": "2024-01-03", "Value": 3}],
				"Perimeter": [{"Date": "2024-01-01", "Value": 4}, {"Date": "2024-01-02", "Value": 5}, {"Date": "2024-01-03", "Value": 6}],
				"Spikiness": [{"Date": "2024-01-01", "Value": 7}, {"Date": "2024-01-02", "Value": 8}, {"Date": "2024-01-03", "Value": 9}]}}`)
		case backend.EndpointExport:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"Success": true, "Data": [["METRIC", "2024-01-01 (Mean)"], ["Area", 1.5]]}`)
		case backend.EndpointAddProject:
			_ = r.ParseForm()
			mu.Lock()
			titles += `, "` + r.PostForm.Get("Title") + `"`
			images += `, "None"`
			descs += `, ""`
			mu.Unlock()
			_, _ = io.WriteString(w, `{"success": true}`)
		case backend.EndpointUploadImage:
			_, _ = io.WriteString(w, `{"success": true}`)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		BackendURL:       backendURL,
		RequestTimeout:   5 * time.Second,
		HoverDebounce:    10 * time.Millisecond,
		DatabasePath:     filepath.Join(tmpDir, "requests.db"),
		ExportDir:        tmpDir,
		JournalRetention: 24 * time.Hour,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	srv := newTestBackend(t)
	mgr, err := NewManager(testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestNewManager(t *testing.T) {
	mgr := newTestManager(t)

	if mgr.Client() == nil {
		t.Error("Client should be initialized")
	}
	if mgr.Binding() == nil {
		t.Error("Binding should be initialized")
	}
	if mgr.Catalog() == nil {
		t.Error("Catalog service should be initialized")
	}
	if mgr.Journal() == nil {
		t.Error("Journal service should be initialized")
	}
	if mgr.Database() == nil {
		t.Error("Database should be initialized")
	}
}

func TestNewManager_BadBackendURL(t *testing.T) {
	cfg := testConfig(t, "ftp://nowhere")
	if _, err := NewManager(cfg); err == nil {
		t.Error("NewManager() should reject a non-http backend URL")
	}
}

func TestManager_RefreshProjects(t *testing.T) {
	mgr := newTestManager(t)
	ch := mgr.Subscribe()

	projects, err := mgr.RefreshProjects(context.Background())
	if err != nil {
		t.Fatalf("RefreshProjects() failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("RefreshProjects() = %d projects, want 2", len(projects))
	}
	if mgr.Catalog().Cover("B") == nil {
		t.Error("cover of B should be cached")
	}

	waitForType[ProjectsChangedEvent](t, ch)

	// Every call lands in the request journal.
	stats := mgr.GetStats()
	if stats.Journal == nil || stats.Journal.Totals.TotalCalls < 2 {
		t.Errorf("journal totals = %+v, want at least 2 calls", stats.Journal)
	}
	if stats.Catalog.Projects != 2 {
		t.Errorf("catalog projects = %d, want 2", stats.Catalog.Projects)
	}
}

func TestManager_CreateProject(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.CreateProject(context.Background(), "C", ""); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if _, ok := mgr.Catalog().Projects().Find("C"); !ok {
		t.Error("project C should be listed after creation")
	}
}

func TestManager_OpenProject(t *testing.T) {
	mgr := newTestManager(t)
	ch := mgr.Subscribe()

	snap, err := mgr.OpenProject(context.Background(), "A")
	if err != nil {
		t.Fatalf("OpenProject() failed: %v", err)
	}
	if snap.Granularity != models.GranularityAverage || snap.Condition != models.DefaultCondition {
		t.Errorf("OpenProject() = %v/%v, want average/%v", snap.Granularity, snap.Condition, models.DefaultCondition)
	}
	if len(snap.Points) != 3 {
		t.Errorf("points = %d, want 3", len(snap.Points))
	}

	ev := waitForType[BindingChangedEvent](t, ch)
	if ev.Snapshot == nil {
		t.Error("BindingChangedEvent should carry a snapshot")
	}
}

func TestManager_Export(t *testing.T) {
	mgr := newTestManager(t)
	var notified []string
	mgr.cfg.NotifyEnabled = true
	mgr.notify = func(title, body string) error {
		notified = append(notified, title)
		return nil
	}

	path, err := mgr.Export(context.Background(), "A")
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if filepath.Base(path) != "A Metric Tracking.xlsx" {
		t.Errorf("Export() path = %q", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Sheet1", "B2"); v != "1.5" {
		t.Errorf("B2 = %q, want 1.5", v)
	}
	if len(notified) != 1 || notified[0] != "Export complete" {
		t.Errorf("notifications = %v, want [Export complete]", notified)
	}
}

func TestManager_SavePlot(t *testing.T) {
	mgr := newTestManager(t)

	if _, err := mgr.SavePlot(); err == nil {
		t.Error("SavePlot() without data should fail")
	}

	if _, err := mgr.OpenProject(context.Background(), "A"); err != nil {
		t.Fatalf("OpenProject() failed: %v", err)
	}
	path, err := mgr.SavePlot()
	if err != nil {
		t.Fatalf("SavePlot() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("plot file missing: %v", err)
	}
}

func TestManager_UploadPair(t *testing.T) {
	mgr := newTestManager(t)
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	seg := filepath.Join(dir, "a.csv")
	_ = os.WriteFile(img, []byte("png"), 0o600)
	_ = os.WriteFile(seg, []byte("0,1"), 0o600)

	if err := mgr.UploadPair(context.Background(), "A", img, seg, "2024-01-04T10:00"); err != nil {
		t.Errorf("UploadPair() failed: %v", err)
	}
	if err := mgr.UploadPair(context.Background(), "A", filepath.Join(dir, "missing.png"), seg, ""); err == nil {
		t.Error("UploadPair() with a missing file should fail")
	}
}

func TestManager_Broadcast(t *testing.T) {
	mgr := newTestManager(t)
	ch := mgr.Subscribe()

	mgr.broadcast(ErrorEvent{Service: "test", Error: errors.New("boom")})

	select {
	case ev := <-ch:
		if e, ok := ev.(ErrorEvent); !ok || e.Service != "test" {
			t.Errorf("received %#v, want ErrorEvent from test", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

}

func TestManager_HandleBindingError(t *testing.T) {
	mgr := newTestManager(t)
	ch := mgr.Subscribe()

	mgr.handleBindingEvent(binding.Event{Type: binding.EventError, Error: binding.ErrNoData})
	ev := waitForType[ErrorEvent](t, ch)
	if ev.Service != "plot" || !errors.Is(ev.Error, binding.ErrNoData) {
		t.Errorf("ErrorEvent = %+v, want plot/ErrNoData", ev)
	}
}

func TestServiceEvent_Interface(t *testing.T) {
	events := []ServiceEvent{
		ProjectsChangedEvent{},
		CoverLoadedEvent{},
		BindingChangedEvent{},
		UploadEvent{},
		ErrorEvent{},
		StatsEvent{},
	}
	for _, e := range events {
		e.isServiceEvent()
	}
}

func TestManager_InboxEnabled(t *testing.T) {
	srv := newTestBackend(t)
	cfg := testConfig(t, srv.URL)
	cfg.InboxDir = filepath.Join(t.TempDir(), "inbox")

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	ch := mgr.Subscribe()
	project := filepath.Join(cfg.InboxDir, "A")
	if err := os.MkdirAll(project, 0o750); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(project, "x.png"), []byte("png"), 0o600)
	_ = os.WriteFile(filepath.Join(project, "x.csv"), []byte("0"), 0o600)

	ev := waitForType[UploadEvent](t, ch)
	if ev.Error != nil || ev.Project != "A" || ev.Image != "x.png" {
		t.Errorf("UploadEvent = %+v, want A/x.png without error", ev)
	}
	if got := mgr.GetStats().Inbox; got != cfg.InboxDir {
		t.Errorf("Stats.Inbox = %q, want %q", got, cfg.InboxDir)
	}
}

func TestManager_Close(t *testing.T) {
	srv := newTestBackend(t)
	mgr, err := NewManager(testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

// waitForType reads events until one of type T arrives.
func waitForType[T ServiceEvent](t *testing.T, ch <-chan ServiceEvent) T {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if typed, ok := ev.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}
