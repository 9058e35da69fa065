package domain

import "context"

// RenderRequest describes one compositing call: overlay a participant name
// on the event template and persist the artifacts.
type RenderRequest struct {
	TemplatePath   string
	TemplateFormat string // TemplateImage or TemplatePDF

	Name string

	// X is used only when AutoCenter is false (preview positioning).
	X          int
	AutoCenter bool

	// Y is the vertical center of the text when YIsCenter is true (final
	// output) and the top edge when false (live preview). The two call sites
	// intentionally differ.
	Y        int
	YIsCenter bool

	FontName  string
	FontSize  int
	TextColor string // #RRGGBB

	// DPI applies when rasterizing a document template's first page.
	DPI int

	OutputPNG string
	// OutputPDF may be empty to skip the document artifact (previews).
	OutputPDF string
}

// Compositor renders certificate artifacts. The output document's pixel
// dimensions always equal the raster's.
type Compositor interface {
	Render(ctx context.Context, req RenderRequest) error
	// TemplateSize returns the pixel dimensions of a template at the given
	// DPI, used when recording an upload.
	TemplateSize(path, format string, dpi int) (width, height int, err error)
}
