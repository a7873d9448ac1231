// Package inbox uploads image/segmentation pairs dropped into a watched folder.
//
// The inbox holds one sub-folder per project. A file pair such as
// "<inbox>/<Project>/day3.png" plus "day3.csv" is uploaded once both files
// have settled, then moved to "<Project>/uploaded/".
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/celltrack-tui/internal/backend"
	"github.com/j-veylop/celltrack-tui/internal/logger"
)

// UploadedDir is the per-project folder files are moved to after upload.
const UploadedDir = "uploaded"

// DefaultSettle is how long a pair must be quiet before it is uploaded.
const DefaultSettle = 500 * time.Millisecond

var imageExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp"}

// CapturedLayout formats a file's modification time as the capture date.
const CapturedLayout = "2006-01-02T15:04"

// Uploader sends one image pair to the backend.
type Uploader interface {
	UploadImage(ctx context.Context, project string, up backend.ImageUpload) error
}

// Event represents an inbox service event.
type Event struct {
	Type    EventType
	Error   error
	Project string
	Image   string
}

// EventType defines the type of inbox event.
type EventType int

const (
	EventUploaded EventType = iota
	EventUploadFailed
	EventError
)

// Pair is an image and its segmentation CSV.
type Pair struct {
	Project      string
	Image        string
	Segmentation string
}

// Service watches the inbox and uploads complete pairs.
type Service struct {
	mu       sync.Mutex
	dir      string
	uploader Uploader
	settle   time.Duration
	timeout  time.Duration
	watcher  *fsnotify.Watcher
	timers   map[string]*time.Timer
	inflight map[string]bool

	eventChan chan Event
	stopChan  chan struct{}
	closed    bool
}

// Option configures a Service.
type Option func(*Service)

// WithSettle overrides the quiet period before upload.
func WithSettle(d time.Duration) Option {
	return func(s *Service) { s.settle = d }
}

// WithTimeout bounds each upload request.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New creates the inbox directory if needed, starts watching it and uploads
// any pairs already present in the background.
func New(dir string, uploader Uploader, opts ...Option) (*Service, error) {
	if dir == "" {
		return nil, errors.New("inbox directory is empty")
	}

	s := &Service{
		dir:       dir,
		uploader:  uploader,
		settle:    DefaultSettle,
		timeout:   2 * time.Minute,
		timers:    make(map[string]*time.Timer),
		inflight:  make(map[string]bool),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start inbox watcher: %w", err)
	}

	go s.scanAll()
	return s, nil
}

// Dir returns the watched directory.
func (s *Service) Dir() string {
	return s.dir
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// startWatcher watches the inbox root and every existing project folder.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := watcher.Add(s.dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	for _, project := range s.projectDirs() {
		s.watchProject(project)
	}

	go s.watchLoop()
	return nil
}

func (s *Service) watchProject(project string) {
	if err := s.watcher.Add(filepath.Join(s.dir, project)); err != nil {
		logger.Warn("failed to watch project folder", "project", project, "error", err)
	}
}

func (s *Service) projectDirs() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var projects []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			projects = append(projects, e.Name())
		}
	}
	return projects
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	rel, err := filepath.Rel(s.dir, event.Name)
	if err != nil {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))
	switch len(parts) {
	case 1:
		// New project folder.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Op&fsnotify.Create != 0 {
			s.watchProject(parts[0])
			s.schedule(parts[0])
		}
	case 2:
		s.schedule(parts[0])
	}
}

// schedule debounces a scan of one project folder.
func (s *Service) schedule(project string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t := s.timers[project]; t != nil {
		t.Stop()
	}
	s.timers[project] = time.AfterFunc(s.settle, func() {
		s.scanProject(project)
	})
}

func (s *Service) scanAll() {
	for _, project := range s.projectDirs() {
		s.scanProject(project)
	}
}

// scanProject uploads every complete pair in a project folder.
func (s *Service) scanProject(project string) {
	for _, pair := range FindPairs(filepath.Join(s.dir, project)) {
		pair.Project = project
		if !s.claim(pair.Image) {
			continue
		}
		s.upload(pair)
		s.release(pair.Image)
	}
}

func (s *Service) claim(image string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.inflight[image] {
		return false
	}
	s.inflight[image] = true
	return true
}

func (s *Service) release(image string) {
	s.mu.Lock()
	delete(s.inflight, image)
	s.mu.Unlock()
}

func (s *Service) upload(pair Pair) {
	name := filepath.Base(pair.Image)
	if err := s.send(pair); err != nil {
		logger.Error("inbox upload failed", "project", pair.Project, "image", name, "error", err)
		s.sendEvent(Event{Type: EventUploadFailed, Project: pair.Project, Image: name, Error: err})
		return
	}

	if err := archive(pair); err != nil {
		logger.Warn("failed to archive uploaded pair", "image", name, "error", err)
		s.sendEvent(Event{Type: EventError, Project: pair.Project, Image: name, Error: err})
	}
	logger.Info("inbox upload complete", "project", pair.Project, "image", name)
	s.sendEvent(Event{Type: EventUploaded, Project: pair.Project, Image: name})
}

func (s *Service) send(pair Pair) error {
	img, err := os.Open(pair.Image)
	if err != nil {
		return err
	}
	defer func() { _ = img.Close() }()

	seg, err := os.Open(pair.Segmentation)
	if err != nil {
		return err
	}
	defer func() { _ = seg.Close() }()

	var captured string
	if info, err := img.Stat(); err == nil {
		captured = info.ModTime().Format(CapturedLayout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.uploader.UploadImage(ctx, pair.Project, backend.ImageUpload{
		Image:        backend.File{Name: filepath.Base(pair.Image), Reader: img},
		Segmentation: backend.File{Name: filepath.Base(pair.Segmentation), Reader: seg},
		Captured:     captured,
	})
}

// archive moves both files of an uploaded pair into the uploaded folder.
func archive(pair Pair) error {
	dest := filepath.Join(filepath.Dir(pair.Image), UploadedDir)
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return err
	}
	for _, f := range []string{pair.Image, pair.Segmentation} {
		if err := os.Rename(f, filepath.Join(dest, filepath.Base(f))); err != nil {
			return err
		}
	}
	return nil
}

// FindPairs lists image files in dir that have a CSV with the same base name.
// Pairs are returned in file name order.
func FindPairs(dir string) []Pair {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	csvs := make(map[string]string)
	var images []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		switch {
		case ext == ".csv":
			csvs[base] = e.Name()
		case slices.Contains(imageExts, ext):
			images = append(images, e.Name())
		}
	}

	slices.Sort(images)
	var pairs []Pair
	for _, name := range images {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if csv, ok := csvs[base]; ok {
			pairs = append(pairs, Pair{
				Image:        filepath.Join(dir, name),
				Segmentation: filepath.Join(dir, csv),
			})
		}
	}
	return pairs
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()

	close(s.stopChan)

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
