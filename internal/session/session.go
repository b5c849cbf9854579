package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/export"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
	"github.com/lehigh-university-libraries/sroie/pkg/textdiff"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoImage  = errors.New("no image loaded")
	// ErrNoRegion also matches region.ErrInvalidRegion
	ErrNoRegion = fmt.Errorf("%w: no region selected", region.ErrInvalidRegion)
)

// Options are shared by every session a Manager creates
type Options struct {
	Categories    []string
	Padding       int
	JPEGQuality   int
	DefaultEngine providers.Engine
	Dispatcher    *providers.Dispatcher
}

// Region is the most recently selected area of the loaded image
type Region struct {
	Box    region.BoundingBox
	Crop   image.Image
	Result providers.Result
}

// Session is the state of one interactive annotation session.
// All methods are safe for concurrent use; calls are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	// unix nanoseconds, accessed without mu
	lastSeen atomic.Int64

	mu          sync.Mutex
	opts        Options
	store       *annotation.Store
	engine      providers.Engine
	credentials []byte
	image       *image.NRGBA
	format      string
	filename    string
	current     *Region
}

func newSession(id string, opts Options, now time.Time) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: now,
		opts:      opts,
		store:     annotation.NewStore(opts.Categories...),
		engine:    opts.DefaultEngine,
	}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// close drops the session's credentials and image
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.credentials)
	s.credentials = nil
	s.image = nil
	s.current = nil
}

// LoadImage decodes a JPEG or PNG upload and makes it the working image.
// Any selected region belongs to the previous image and is dropped.
func (s *Session) LoadImage(filename string, data []byte) (ImageInfo, error) {
	img, format, err := imageproc.Load(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.format = format
	s.filename = filename
	s.current = nil

	slog.Info("Image loaded", "session", s.ID, "filename", filename, "format", format, "size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
	return s.imageInfo(), nil
}

// SetCredentials stores a service-account key for the cloud engine
func (s *Session) SetCredentials(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("credentials rejected: %w: uploaded key is empty", providers.ErrCredentialsMissing)
	}
	candidate := bytes.Clone(data)
	if err := s.opts.Dispatcher.Available(providers.GoogleVision, candidate); err != nil {
		return fmt.Errorf("credentials rejected: %w", err)
	}
	clear(s.credentials)
	s.credentials = candidate
	slog.Info("Credentials uploaded", "session", s.ID)
	return nil
}

// SetEngine selects the OCR engine for later regions
func (s *Session) SetEngine(engine providers.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = engine
}

// SelectRegion normalizes a polygon over the loaded image, crops it and
// runs the selected engine. The region becomes current even when the engine
// is unavailable, so the user can still type the text by hand.
func (s *Session) SelectRegion(ctx context.Context, points []region.Point) (Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.image == nil {
		return Region{}, ErrNoImage
	}
	bounds := s.image.Bounds()
	box, err := region.Normalize(points, bounds.Dx(), bounds.Dy(), s.opts.Padding)
	if err != nil {
		return Region{}, err
	}
	crop, err := imageproc.Crop(s.image, box.Rect())
	if err != nil {
		return Region{}, fmt.Errorf("%w: %v", region.ErrInvalidRegion, err)
	}

	result, err := s.opts.Dispatcher.Recognize(ctx, crop, s.engine, s.credentials)
	current := Region{Box: box, Crop: crop, Result: result}
	if err != nil && !errors.Is(err, providers.ErrCredentialsMissing) {
		return current, err
	}
	s.current = &current
	return current, err
}

// CurrentRegion returns the most recently selected region
func (s *Session) CurrentRegion() (Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Region{}, false
	}
	return *s.current, true
}

// AddCategory creates a category
func (s *Session) AddCategory(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddCategory(name)
}

// AddAnnotation files text under category. A nil box means the current
// region; an explicit [x_min, y_min, x_max, y_max] box is clamped to the
// loaded image. When the current region is used, the returned metrics compare
// text with the engine output.
func (s *Session) AddAnnotation(category string, box []int, text string) (*textdiff.Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target region.BoundingBox
	var metrics *textdiff.Metrics
	switch {
	case box != nil:
		if s.image == nil {
			return nil, ErrNoImage
		}
		b := s.image.Bounds()
		clamped, err := region.FromCorners(box, b.Dx(), b.Dy())
		if err != nil {
			return nil, err
		}
		target = clamped
	case s.current != nil:
		target = s.current.Box
		m := textdiff.Compare(s.current.Result.Text, text)
		metrics = &m
	default:
		return nil, ErrNoRegion
	}

	if err := s.store.AddAnnotation(category, target, text); err != nil {
		return nil, err
	}
	slog.Info("Annotation added", "session", s.ID, "category", category, "box", target.String())
	return metrics, nil
}

// ExportText renders the text export and its download name
func (s *Session) ExportText() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Text(s.store), export.TextFilename(s.downloadName())
}

// ExportJSON renders the JSON export and its download name
func (s *Session) ExportJSON() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := export.JSON(s.store)
	return data, export.JSONFilename(s.downloadName()), err
}

// ExportImage re-encodes the loaded image as JPEG
func (s *Session) ExportImage() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, "", ErrNoImage
	}
	data, err := export.Image(s.image, s.opts.JPEGQuality)
	return data, export.ImageFilename(s.downloadName()), err
}

func (s *Session) downloadName() string {
	if s.filename == "" {
		return "annotations"
	}
	return s.filename
}
