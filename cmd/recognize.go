package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/sroie/internal/utils"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "OCR one region of a receipt image",
	Long:  "Normalize a polygon over a receipt image, crop and enhance it, run one OCR engine and print the box and recognized text",
	Example: `  sroie recognize --image X51005230605.jpg --points "10,20 50,20 50,60"
  sroie recognize --image receipt.png --points "10,20 90,40" --engine google-vision --credentials key.json`,
	RunE: runRecognize,
}

func init() {
	RootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().String("image", "", "Receipt image (JPEG or PNG)")
	recognizeCmd.Flags().String("points", "", `Polygon as space separated x,y pairs, e.g. "10,20 50,20 50,60"`)
	recognizeCmd.Flags().String("engine", "", "OCR engine: tesseract, easyocr or google-vision")
	recognizeCmd.Flags().String("credentials", "", "Service account JSON key for google-vision")
	recognizeCmd.Flags().Int("padding", -1, "Padding around the polygon in pixels (default from config, 5)")
	_ = recognizeCmd.MarkFlagRequired("image")
	_ = recognizeCmd.MarkFlagRequired("points")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	imagePath, _ := cmd.Flags().GetString("image")
	pointsArg, _ := cmd.Flags().GetString("points")
	credentialsPath, _ := cmd.Flags().GetString("credentials")
	if padding, _ := cmd.Flags().GetInt("padding"); padding >= 0 {
		cfg.Padding = padding
	}

	points, err := parsePoints(pointsArg)
	if err != nil {
		return err
	}

	var credentials []byte
	if credentialsPath != "" {
		credentials, err = os.ReadFile(credentialsPath)
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := imageproc.Load(f)
	if err != nil {
		return err
	}

	b := img.Bounds()
	box, err := region.Normalize(points, b.Dx(), b.Dy(), cfg.Padding)
	if err != nil {
		return err
	}
	crop, err := imageproc.Crop(img, box.Rect())
	if err != nil {
		return fmt.Errorf("%w: %v", region.ErrInvalidRegion, err)
	}

	result, err := newDispatcher(cfg).Recognize(cmd.Context(), crop, cfg.OCR.DefaultEngine, credentials)
	if errors.Is(err, providers.ErrCredentialsMissing) {
		slog.Warn("OCR engine unavailable, no text recognized", "engine", result.Engine, "err", err)
	} else if err != nil {
		return utils.MaskSensitiveError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "box: %s\nengine: %s\ntext: %s\n", box, result.Engine.Label(), result.Text)
	return nil
}

// parsePoints reads "x,y x,y ..." into points, truncating fractions
func parsePoints(s string) ([]region.Point, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no points given", region.ErrInvalidRegion)
	}
	points := make([]region.Point, 0, len(fields))
	for _, field := range fields {
		xs, ys, ok := strings.Cut(field, ",")
		if !ok {
			return nil, fmt.Errorf("%w: point %q is not x,y", region.ErrInvalidRegion, field)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %q: %v", region.ErrInvalidRegion, field, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: point %q: %v", region.ErrInvalidRegion, field, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("%w: point %q is not finite", region.ErrInvalidRegion, field)
		}
		points = append(points, region.Point{X: int(x), Y: int(y)})
	}
	return points, nil
}
