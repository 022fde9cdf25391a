package plotting

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	apperrors "cianalysis/internal/errors"
)

// Default single-panel size
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Stack is two panels drawn above each other
type Stack struct {
	Top    Chart
	Bottom Chart
	// TopShare is the fraction of the height given to Top, in (0, 1)
	TopShare float64
	// Width and Height in inches; zero selects the defaults
	Width  float64
	Height float64
}

// Renderer writes charts to image or document files
type Renderer struct {
	logger *slog.Logger
	width  vg.Length
	height vg.Length
}

// NewRenderer creates a renderer with the default size
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger: logger.With(slog.String("component", "plot_renderer")),
		width:  DefaultWidth,
		height: DefaultHeight,
	}
}

// Render writes a single-panel chart to path
func (r *Renderer) Render(path string, chart Chart) error {
	p, err := chart.build()
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid chart %q", chart.Title), err)
	}

	format, err := formatOf(path)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(r.width, r.height, format)
	if err != nil {
		return apperrors.NewStorageError("failed to create canvas", err)
	}

	if err := writeAtomic(path, wt); err != nil {
		return err
	}
	r.logger.Debug("Chart written",
		slog.String("file", path),
		slog.Int("series", len(chart.Series)))
	return nil
}

// RenderStacked writes two panels sharing the page to path
func (r *Renderer) RenderStacked(path string, stack Stack) error {
	if stack.TopShare <= 0 || stack.TopShare >= 1 {
		return apperrors.NewValidationError(
			fmt.Sprintf("top share %v outside (0, 1)", stack.TopShare), nil)
	}

	top, err := stack.Top.build()
	if err != nil {
		return apperrors.NewValidationError("invalid top panel", err)
	}
	bottom, err := stack.Bottom.build()
	if err != nil {
		return apperrors.NewValidationError("invalid bottom panel", err)
	}

	width, height := r.width, r.height
	if stack.Width > 0 && stack.Height > 0 {
		width, height = vg.Length(stack.Width)*vg.Inch, vg.Length(stack.Height)*vg.Inch
	}

	format, err := formatOf(path)
	if err != nil {
		return err
	}
	canvas, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return apperrors.NewStorageError("failed to create canvas", err)
	}

	dc := draw.New(canvas)
	bottomHeight := height * vg.Length(1-stack.TopShare)
	top.Draw(draw.Crop(dc, 0, 0, bottomHeight, 0))
	bottom.Draw(draw.Crop(dc, 0, 0, 0, -(height - bottomHeight)))

	if err := writeAtomic(path, canvas); err != nil {
		return err
	}
	r.logger.Debug("Stacked chart written", slog.String("file", path))
	return nil
}

func formatOf(path string) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch format {
	case "png", "pdf", "svg", "jpg", "jpeg", "tif", "tiff", "eps":
		return format, nil
	default:
		return "", apperrors.NewValidationError(
			fmt.Sprintf("unsupported image format %q", filepath.Ext(path)), nil)
	}
}

// writeAtomic writes wt into a temporary sibling of path and renames it
func writeAtomic(path string, wt io.WriterTo) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temporary file", err)
	}
	tmpPath := tmp.Name()

	if _, err := wt.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.NewStorageError(fmt.Sprintf("failed to render %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.NewStorageError("failed to close temporary file", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return apperrors.NewStorageError("failed to set file mode", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperrors.NewStorageError(fmt.Sprintf("failed to publish %s", path), err)
	}
	return nil
}
