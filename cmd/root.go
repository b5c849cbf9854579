package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/sroie/internal/config"
	"github.com/lehigh-university-libraries/sroie/internal/utils"
	"github.com/lehigh-university-libraries/sroie/pkg/easyocr"
	"github.com/lehigh-university-libraries/sroie/pkg/googlevision"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/tesseract"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "sroie",
	Short: "Receipt annotation for the SROIE dataset",
	Long:  "Draw regions on scanned receipts, OCR them with Tesseract, EasyOCR or Google Cloud Vision, and export the confirmed annotations",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		handler := slog.New(slog.NewTextHandler(os.Stdout, opts))
		slog.SetDefault(handler)

		return nil
	},
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	RootCmd.PersistentFlags().String("log-level", ll, "The logging level for the command")
	RootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}

// loadConfig reads --config and applies any engine flag the user set
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if f := cmd.Flags().Lookup("engine"); f != nil && f.Changed {
		engine, err := providers.ParseEngine(f.Value.String())
		if err != nil {
			return cfg, err
		}
		cfg.OCR.DefaultEngine = engine
	}
	return cfg, nil
}

// newDispatcher registers every engine with its configured settings
func newDispatcher(cfg config.Config) *providers.Dispatcher {
	registry := providers.NewRegistry(
		tesseract.New(cfg.OCR.Tesseract.Languages...),
		easyocr.New(cfg.OCR.EasyOCR.Command, cfg.OCR.EasyOCR.Languages, cfg.OCR.EasyOCR.GPU),
		googlevision.New(cfg.OCR.Google.CredentialsFile),
	)
	for _, engine := range registry.List() {
		provider, _ := registry.Get(engine)
		if err := provider.ValidateConfig(providers.Config{}); err != nil {
			slog.Warn("OCR engine unavailable", "engine", engine.Label(), "err", utils.MaskSensitiveError(err))
		}
	}
	return providers.NewDispatcher(registry,
		providers.WithContrast(cfg.Contrast),
		providers.WithTimeout(cfg.OCR.Timeout),
	)
}
