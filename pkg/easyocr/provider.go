package easyocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"

	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
)

// DefaultCommand is the EasyOCR command line entry point
const DefaultCommand = "easyocr"

// DefaultLanguages reads English and Russian receipts
var DefaultLanguages = []string{"en", "ru"}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider implements the EasyOCR engine by invoking its command line tool
type Provider struct {
	command   string
	languages []string
	gpu       bool
	run       runFunc
	lookPath  func(file string) (string, error)
}

// New creates a new EasyOCR provider
func New(command string, languages []string, gpu bool) *Provider {
	if command == "" {
		command = DefaultCommand
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Provider{
		command:   command,
		languages: languages,
		gpu:       gpu,
		run:       runCommand,
		lookPath:  exec.LookPath,
	}
}

// Engine returns the engine this provider implements
func (p *Provider) Engine() providers.Engine {
	return providers.EasyOCR
}

// ValidateConfig checks that the EasyOCR command is installed
func (p *Provider) ValidateConfig(config providers.Config) error {
	if _, err := p.lookPath(p.command); err != nil {
		return fmt.Errorf("%s not found: %w", p.command, err)
	}
	return nil
}

// ExtractText writes img to a temporary file and returns the recognized
// lines joined with newlines
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, img image.Image) (string, error) {
	data, err := imageproc.EncodePNG(img)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "easyocr_*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	output, err := p.run(ctx, p.command, p.args(tmp.Name())...)
	if err != nil {
		return "", fmt.Errorf("easyocr command failed: %w", err)
	}

	return parseOutput(output), nil
}

func (p *Provider) args(imagePath string) []string {
	args := []string{"-l"}
	args = append(args, p.languages...)
	args = append(args, "-f", imagePath, "--detail", "0", "--gpu", pythonBool(p.gpu))
	return args
}

// parseOutput keeps one recognized fragment per line, dropping blank lines
func parseOutput(output []byte) string {
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return output, nil
}

func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
