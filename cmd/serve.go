package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/lehigh-university-libraries/sroie/internal/server"
	"github.com/lehigh-university-libraries/sroie/internal/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the receipt annotation web API",
	Long:  "Start an HTTP server that holds annotation sessions in memory: upload a receipt, select regions, OCR them and export the annotations",
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Port to run the web server on (default 8888)")
	serveCmd.Flags().String("host", "", "Host to bind the web server to (default localhost)")
	serveCmd.Flags().String("engine", "", "Default OCR engine for new sessions: tesseract, easyocr or google-vision")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	manager := session.NewManager(session.Options{
		Categories:    cfg.DefaultCategories,
		Padding:       cfg.Padding,
		JPEGQuality:   cfg.JPEGQuality,
		DefaultEngine: cfg.OCR.DefaultEngine,
		Dispatcher:    newDispatcher(cfg),
	}, cfg.Session.IdleTimeout)
	if err := manager.Start(cfg.Session.SweepSchedule); err != nil {
		return err
	}
	defer manager.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting SROIE annotator", "host", cfg.Server.Host, "port", cfg.Server.Port, "engine", cfg.OCR.DefaultEngine)
	if err := server.New(manager, cfg.Server.MaxUploadMB).Run(ctx, cfg.Addr()); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
