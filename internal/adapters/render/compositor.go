// Package render composites participant names onto certificate templates and
// produces the PNG and PDF artifacts.
package render

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font"

	"certmailer/internal/domain"
)

// pdfTitle is the document title stamped on every generated certificate.
const pdfTitle = "Certificate of Participation"

// FontResolver supplies a renderable face for a font name at a point size.
// It never fails; unresolvable names fall back to a default face.
type FontResolver interface {
	Resolve(name string, size float64) font.Face
}

// Compositor implements domain.Compositor on top of gg, go-fitz and fpdf.
type Compositor struct {
	fonts FontResolver
}

// NewCompositor returns a Compositor using the given font resolver.
func NewCompositor(fonts FontResolver) *Compositor {
	return &Compositor{fonts: fonts}
}

// Render overlays the participant name on the template and writes the PNG
// artifact, plus a PDF sized exactly to the raster (1 point = 1 pixel) when
// req.OutputPDF is set.
func (c *Compositor) Render(ctx context.Context, req domain.RenderRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "empty"}
	}
	r, g, b, err := parseHexColor(req.TextColor)
	if err != nil {
		return err
	}

	surface, err := loadSurface(req.TemplatePath, req.TemplateFormat, req.DPI)
	if err != nil {
		return err
	}

	dc := gg.NewContextForImage(surface)
	face := c.fonts.Resolve(req.FontName, float64(req.FontSize))
	dc.SetFontFace(face)
	dc.SetRGB255(r, g, b)

	textW, _ := dc.MeasureString(req.Name)
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	textH := ascent + metrics.Descent.Ceil()

	x := req.X
	if req.AutoCenter {
		x = CenterX(dc.Width(), int(math.Ceil(textW)))
	}

	// Final output treats Y as the vertical center of the text; previews
	// treat it as the top edge. The two call sites intentionally differ.
	top := req.Y
	if req.YIsCenter {
		top = req.Y - textH/2
	}
	baseline := top + ascent

	dc.DrawString(req.Name, float64(x), float64(baseline))

	if err := os.MkdirAll(filepath.Dir(req.OutputPNG), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := dc.SavePNG(req.OutputPNG); err != nil {
		return fmt.Errorf("save png: %w", err)
	}

	if req.OutputPDF == "" {
		return nil
	}
	return writePDF(req.OutputPNG, req.OutputPDF, dc.Width(), dc.Height())
}

// TemplateSize returns the template's pixel dimensions at the given DPI.
func (c *Compositor) TemplateSize(path, format string, dpi int) (int, int, error) {
	img, err := loadSurface(path, format, dpi)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// CenterX returns the x coordinate centering text of the measured width on a
// surface, using floor division for both even and odd differences.
func CenterX(surfaceWidth, textWidth int) int {
	return (surfaceWidth - textWidth) / 2
}

// loadSurface loads the template as a raster. Document templates render only
// their first page at the given DPI.
func loadSurface(path, format string, dpi int) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, domain.ErrNotFound)
	}
	switch format {
	case domain.TemplatePDF:
		doc, err := fitz.New(path)
		if err != nil {
			return nil, &domain.ValidationError{Field: "template", Reason: fmt.Sprintf("unreadable document: %v", err)}
		}
		defer doc.Close()
		img, err := doc.ImageDPI(0, float64(dpi))
		if err != nil {
			return nil, &domain.ValidationError{Field: "template", Reason: fmt.Sprintf("render first page: %v", err)}
		}
		return img, nil
	case domain.TemplateImage:
		img, err := gg.LoadImage(path)
		if err != nil {
			return nil, &domain.ValidationError{Field: "template", Reason: fmt.Sprintf("corrupt image: %v", err)}
		}
		return img, nil
	default:
		return nil, &domain.ValidationError{Field: "template_format", Reason: fmt.Sprintf("unknown format %q", format)}
	}
}

// writePDF embeds the PNG full-bleed on a single page of exactly the raster's
// pixel dimensions. No scaling, no letterboxing.
func writePDF(pngPath, pdfPath string, width, height int) error {
	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: float64(width), Ht: float64(height)},
	})
	pdf.SetTitle(pdfTitle, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.ImageOptions(pngPath, 0, 0, float64(width), float64(height), false, opts, 0, "")
	if err := pdf.OutputFileAndClose(pdfPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// parseHexColor parses a #RRGGBB color, two hex digits per channel, no alpha.
func parseHexColor(s string) (int, int, int, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, &domain.ValidationError{Field: "text_color", Reason: fmt.Sprintf("want #RRGGBB, got %q", s)}
	}
	var ch [3]int
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return 0, 0, 0, &domain.ValidationError{Field: "text_color", Reason: fmt.Sprintf("want #RRGGBB, got %q", s)}
		}
		ch[i] = int(v)
	}
	return ch[0], ch[1], ch[2], nil
}
