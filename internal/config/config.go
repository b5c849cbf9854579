package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/easyocr"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
	yaml "go.yaml.in/yaml/v3"
)

type Config struct {
	DefaultCategories []string      `yaml:"default_categories"`
	Padding           int           `yaml:"padding"`
	Contrast          float64       `yaml:"contrast"`
	JPEGQuality       int           `yaml:"jpeg_quality"`
	OCR               OCRConfig     `yaml:"ocr"`
	Session           SessionConfig `yaml:"session"`
	Server            ServerConfig  `yaml:"server"`
}

type OCRConfig struct {
	DefaultEngine providers.Engine `yaml:"default_engine"`
	Timeout       time.Duration    `yaml:"timeout"`
	Tesseract     struct {
		Languages []string `yaml:"languages"`
	} `yaml:"tesseract"`
	EasyOCR struct {
		Command   string   `yaml:"command"`
		Languages []string `yaml:"languages"`
		GPU       bool     `yaml:"gpu"`
	} `yaml:"easyocr"`
	Google struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"google"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	c := Config{
		DefaultCategories: append([]string(nil), annotation.DefaultCategories...),
		Padding:           region.DefaultPadding,
		Contrast:          imageproc.DefaultContrast,
		JPEGQuality:       imageproc.DefaultJPEGQuality,
		Session: SessionConfig{
			IdleTimeout:   time.Hour,
			SweepSchedule: "@every 1m",
		},
		Server: ServerConfig{
			Host:        "localhost",
			Port:        "8888",
			MaxUploadMB: 20,
		},
	}
	c.OCR.DefaultEngine = providers.Tesseract
	c.OCR.Timeout = providers.DefaultTimeout
	c.OCR.EasyOCR.Command = easyocr.DefaultCommand
	c.OCR.EasyOCR.Languages = append([]string(nil), easyocr.DefaultLanguages...)
	return c
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	if c.OCR.Google.CredentialsFile == "" {
		c.OCR.Google.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if host := os.Getenv("SROIE_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SROIE_PORT"); port != "" {
		c.Server.Port = port
	}
	if engine := os.Getenv("SROIE_ENGINE"); engine != "" {
		e, err := providers.ParseEngine(engine)
		if err != nil {
			return fmt.Errorf("SROIE_ENGINE: %w", err)
		}
		c.OCR.DefaultEngine = e
	}
	return nil
}

// Validate rejects settings the annotator cannot run with
func (c Config) Validate() error {
	if c.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", c.Padding)
	}
	if c.Contrast <= 0 {
		return fmt.Errorf("contrast must be positive, got %g", c.Contrast)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr.timeout must be positive, got %s", c.OCR.Timeout)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive, got %s", c.Session.IdleTimeout)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
