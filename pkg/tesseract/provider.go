package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/otiai10/gosseract/v2"
)

// client is the subset of *gosseract.Client the provider needs
type client interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	Text() (string, error)
	Close() error
}

// Provider implements the Tesseract engine through libtesseract
type Provider struct {
	languages     []string
	clientFactory func() client
}

// New creates a new Tesseract provider. With no languages Tesseract uses its default (eng).
func New(languages ...string) *Provider {
	return &Provider{
		languages: languages,
		clientFactory: func() client {
			return gosseract.NewClient()
		},
	}
}

// Engine returns the engine this provider implements
func (p *Provider) Engine() providers.Engine {
	return providers.Tesseract
}

// ValidateConfig always succeeds; Tesseract runs locally.
func (p *Provider) ValidateConfig(config providers.Config) error {
	return nil
}

// ExtractText runs Tesseract on img and returns the trimmed text
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img image.Image) (string, error) {
	data, err := imageproc.EncodePNG(img)
	if err != nil {
		return "", err
	}

	c := p.clientFactory()
	if len(p.languages) > 0 {
		if err := c.SetLanguage(p.languages...); err != nil {
			c.Close()
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		c.Close()
		return "", fmt.Errorf("set image: %w", err)
	}

	// libtesseract cannot be interrupted; honor cancellation around the call
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := c.Text()
		done <- outcome{text, err}
	}()

	select {
	case <-ctx.Done():
		// the client is released once the running call returns
		go func() {
			<-done
			c.Close()
		}()
		return "", ctx.Err()
	case out := <-done:
		c.Close()
		if out.err != nil {
			return "", fmt.Errorf("recognize text: %w", out.err)
		}
		return strings.TrimSpace(out.text), nil
	}
}
