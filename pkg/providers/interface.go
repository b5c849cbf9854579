package providers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
)

var (
	// ErrEngine marks a failure inside an OCR engine.
	ErrEngine = errors.New("ocr engine error")
	// ErrCredentialsMissing is returned when the cloud engine has no key to use.
	ErrCredentialsMissing = errors.New("credentials missing")
	// ErrUnknownEngine is returned for engine names outside the supported set.
	ErrUnknownEngine = errors.New("unknown ocr engine")
)

// Engine selects one of the supported OCR backends
type Engine int

const (
	Tesseract Engine = iota
	EasyOCR
	GoogleVision
)

// Engines returns every supported engine in display order
func Engines() []Engine {
	return []Engine{Tesseract, EasyOCR, GoogleVision}
}

func (e Engine) String() string {
	switch e {
	case Tesseract:
		return "tesseract"
	case EasyOCR:
		return "easyocr"
	case GoogleVision:
		return "google-vision"
	default:
		return fmt.Sprintf("engine(%d)", int(e))
	}
}

// Label is the human readable engine name
func (e Engine) Label() string {
	switch e {
	case Tesseract:
		return "Tesseract"
	case EasyOCR:
		return "EasyOCR"
	case GoogleVision:
		return "Google Cloud Vision"
	default:
		return e.String()
	}
}

// Local reports whether the engine runs without network access
func (e Engine) Local() bool {
	return e == Tesseract || e == EasyOCR
}

// ParseEngine parses an engine name, case-insensitively
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tesseract":
		return Tesseract, nil
	case "easyocr":
		return EasyOCR, nil
	case "google-vision", "googlevision", "google":
		return GoogleVision, nil
	default:
		return Tesseract, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

func (e Engine) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Engine) UnmarshalText(text []byte) error {
	parsed, err := ParseEngine(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Config represents the per-call configuration handed to a provider
type Config struct {
	// Credentials is a service-account JSON key, used by the cloud engine only.
	Credentials []byte
	Timeout     time.Duration
}

// Provider interface that all OCR engines must implement
type Provider interface {
	// ExtractText recognizes text in an already preprocessed image
	ExtractText(ctx context.Context, config Config, img image.Image) (string, error)
	// Engine returns the engine this provider implements
	Engine() Engine
	// ValidateConfig reports whether the provider can run with config
	ValidateConfig(config Config) error
}

// EngineError wraps a failure returned by a provider.
// errors.Is(err, ErrEngine) holds for every EngineError.
type EngineError struct {
	Engine Engine
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrEngine, e.Engine.Label(), e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}
