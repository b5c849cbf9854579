package providers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/sroie/internal/utils"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
)

// DefaultTimeout bounds a single recognition call.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of a recognition request.
// Unavailable is set when the engine could not be used at all, which is
// distinct from an engine that ran and found no text.
type Result struct {
	Engine      Engine `json:"engine"`
	Text        string `json:"text"`
	Unavailable bool   `json:"unavailable"`
}

// Dispatcher preprocesses cropped regions and routes them to an engine
type Dispatcher struct {
	registry *Registry
	contrast float64
	timeout  time.Duration
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithContrast overrides the contrast multiplier applied before recognition
func WithContrast(factor float64) DispatcherOption {
	return func(d *Dispatcher) {
		if factor > 0 {
			d.contrast = factor
		}
	}
}

// WithTimeout overrides the per-call timeout
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher over the registry
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		contrast: imageproc.DefaultContrast,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Available reports why engine cannot run with credentials, or nil if it can
func (d *Dispatcher) Available(engine Engine, credentials []byte) error {
	provider, err := d.registry.Get(engine)
	if err != nil {
		return err
	}
	return provider.ValidateConfig(Config{Credentials: credentials, Timeout: d.timeout})
}

// Preprocess applies the grayscale and contrast step every engine receives
func (d *Dispatcher) Preprocess(crop image.Image) image.Image {
	return imageproc.Enhance(crop, d.contrast)
}

// Recognize preprocesses crop and runs the selected engine on it.
//
// When the engine cannot run because credentials are missing, the returned
// Result has empty text and Unavailable set, and the error wraps
// ErrCredentialsMissing. Engine failures and timeouts wrap ErrEngine.
func (d *Dispatcher) Recognize(ctx context.Context, crop image.Image, engine Engine, credentials []byte) (Result, error) {
	result := Result{Engine: engine}

	provider, err := d.registry.Get(engine)
	if err != nil {
		result.Unavailable = true
		return result, err
	}

	config := Config{
		Credentials: credentials,
		Timeout:     d.timeout,
	}
	if err := provider.ValidateConfig(config); err != nil {
		slog.Warn("OCR engine unavailable", "engine", engine, "err", utils.MaskSensitiveError(err))
		result.Unavailable = true
		if errors.Is(err, ErrCredentialsMissing) {
			return result, err
		}
		return result, &EngineError{Engine: engine, Err: err}
	}

	enhanced := d.Preprocess(crop)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	text, err := extract(ctx, provider, config, enhanced)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", d.timeout, err)
		}
		slog.Error("OCR engine failed", "engine", engine, "duration", time.Since(start), "err", utils.MaskSensitiveError(err))
		return result, &EngineError{Engine: engine, Err: err}
	}

	result.Text = text
	slog.Debug("OCR engine finished", "engine", engine, "duration", time.Since(start), "chars", len(text))
	return result, nil
}

// extract shields callers from panics inside engine bindings
func extract(ctx context.Context, provider Provider, config Config, img image.Image) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panicked: %v", r)
		}
	}()
	return provider.ExtractText(ctx, config, img)
}
