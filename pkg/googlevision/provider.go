package googlevision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"google.golang.org/api/option"
)

// textDetector is the subset of *vision.ImageAnnotatorClient the provider needs
type textDetector interface {
	DetectTexts(ctx context.Context, img *visionpb.Image, ictx *visionpb.ImageContext, maxResults int, opts ...gax.CallOption) ([]*visionpb.EntityAnnotation, error)
	Close() error
}

type clientFactory func(ctx context.Context, opts ...option.ClientOption) (textDetector, error)

// Provider implements the Google Cloud Vision engine
type Provider struct {
	// credentialsFile is used when a call carries no key of its own
	credentialsFile string
	newClient       clientFactory
}

// New creates a new Google Vision provider. credentialsFile may be empty.
func New(credentialsFile string) *Provider {
	return &Provider{
		credentialsFile: credentialsFile,
		newClient: func(ctx context.Context, opts ...option.ClientOption) (textDetector, error) {
			return vision.NewImageAnnotatorClient(ctx, opts...)
		},
	}
}

// Engine returns the engine this provider implements
func (p *Provider) Engine() providers.Engine {
	return providers.GoogleVision
}

// ValidateConfig requires a service-account key, either per call or process-wide
func (p *Provider) ValidateConfig(config providers.Config) error {
	if len(config.Credentials) == 0 {
		if p.credentialsFile == "" {
			return fmt.Errorf("%w: upload a Google Cloud service-account key", providers.ErrCredentialsMissing)
		}
		return nil
	}
	if !json.Valid(config.Credentials) {
		return fmt.Errorf("credentials are not valid JSON")
	}
	return nil
}

// ExtractText sends img to TEXT_DETECTION and returns the full-text
// description of the first annotation, or "" when nothing was found
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img image.Image) (string, error) {
	if err := p.ValidateConfig(config); err != nil {
		return "", err
	}

	data, err := imageproc.EncodePNG(img)
	if err != nil {
		return "", err
	}

	opt := option.WithCredentialsFile(p.credentialsFile)
	if len(config.Credentials) > 0 {
		opt = option.WithCredentialsJSON(config.Credentials)
	}

	client, err := p.newClient(ctx, opt)
	if err != nil {
		return "", fmt.Errorf("failed to create vision client: %w", err)
	}
	defer client.Close()

	visionImage, err := vision.NewImageFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	annotations, err := client.DetectTexts(ctx, visionImage, nil, 0)
	if err != nil {
		return "", fmt.Errorf("text detection failed: %w", err)
	}
	if len(annotations) == 0 {
		return "", nil
	}
	return annotations[0].GetDescription(), nil
}
