package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/models"
)

// ErrImageDecode is returned by the document and image emitters when the
// signature bytes cannot be decoded
var ErrImageDecode = errors.New("signature image could not be decoded")

// Kind identifies one of the three artifacts
type Kind string

const (
	KindSpreadsheet Kind = "xlsx"
	KindDocument    Kind = "pdf"
	KindImage       Kind = "jpg"
)

// Content types of the artifacts
const (
	ContentTypeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeDocument    = "application/pdf"
	ContentTypeImage       = "image/jpeg"
)

// Signature box in both the document (pt) and the flattened image (px)
const (
	SignatureWidth  = 200
	SignatureHeight = 100
)

// Artifact is one generated download. Either Data or Err is set.
type Artifact struct {
	Kind        Kind   `json:"kind"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
	Err         error  `json:"-"`
}

// OK reports whether the artifact was produced
func (a Artifact) OK() bool {
	return a.Err == nil && len(a.Data) > 0
}

// Bundle groups the artifacts of one submission
type Bundle struct {
	Spreadsheet Artifact
	Document    Artifact
	Image       Artifact
	CreatedAt   time.Time
}

// Artifacts returns the three artifacts in download order
func (b *Bundle) Artifacts() []Artifact {
	return []Artifact{b.Spreadsheet, b.Document, b.Image}
}

// Get looks an artifact up by kind
func (b *Bundle) Get(kind Kind) (Artifact, bool) {
	for _, a := range b.Artifacts() {
		if a.Kind == kind {
			return a, true
		}
	}
	return Artifact{}, false
}

// Err joins the errors of all failed artifacts
func (b *Bundle) Err() error {
	var errs []error
	for _, a := range b.Artifacts() {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Kind, a.Err))
		}
	}
	return errors.Join(errs...)
}

// Options configures a Compiler
type Options struct {
	// FontPath is the preferred TrueType font of the flattened image
	FontPath string
	// FontSearchDirs are tried when FontPath is relative and not found as is
	FontSearchDirs []string
}

// Compiler turns a visit and its signature into the three artifacts
type Compiler struct {
	fonts  *FontSet
	logger *zap.Logger
}

// NewCompiler resolves fonts once; a missing font is not an error
func NewCompiler(opts Options, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	dirs := opts.FontSearchDirs
	if dirs == nil {
		dirs = DefaultFontDirs
	}

	fonts := LoadFontSet(opts.FontPath, dirs)
	if fonts.Fallback() {
		logger.Warn("⚠️ Preferred font unavailable, using built-in font",
			zap.String("font", opts.FontPath), zap.String("fallback", fonts.Source()))
	} else {
		logger.Info("🔤 Report font loaded", zap.String("font", fonts.Source()))
	}

	return &Compiler{fonts: fonts, logger: logger}
}

// Compile runs the three emitters independently. A failing emitter only
// marks its own artifact; the others are still produced.
func (c *Compiler) Compile(table models.Table, rec models.VisitRecord, sig []byte) *Bundle {
	b := &Bundle{
		Spreadsheet: Artifact{Kind: KindSpreadsheet, Filename: SpreadsheetFilename(rec.Date), ContentType: ContentTypeSpreadsheet},
		Document:    Artifact{Kind: KindDocument, Filename: DocumentFilename(rec.Company, rec.Date), ContentType: ContentTypeDocument},
		Image:       Artifact{Kind: KindImage, Filename: ImageFilename(rec.Company), ContentType: ContentTypeImage},
		CreatedAt:   time.Now(),
	}

	b.Spreadsheet.Data, b.Spreadsheet.Err = c.Spreadsheet(table)
	b.Document.Data, b.Document.Err = c.Document(rec, sig)
	b.Image.Data, b.Image.Err = c.Image(rec, sig)

	for _, a := range b.Artifacts() {
		if a.Err != nil {
			c.logger.Error("❌ Failed to generate artifact", zap.String("kind", string(a.Kind)), zap.Error(a.Err))
		}
	}
	return b
}

// SpreadsheetFilename is Visitas_<YYYYMMDD>.xlsx
func SpreadsheetFilename(date time.Time) string {
	return fmt.Sprintf("Visitas_%s.xlsx", date.Format(models.FileDateLayout))
}

// DocumentFilename is Reporte_<Company>_<YYYY-MM-DD>.pdf
func DocumentFilename(company string, date time.Time) string {
	return fmt.Sprintf("Reporte_%s_%s.pdf", filenamePart(company), date.Format(models.DateLayout))
}

// ImageFilename is Foto_Reporte_<Company>.jpg
func ImageFilename(company string) string {
	return fmt.Sprintf("Foto_Reporte_%s.jpg", filenamePart(company))
}

// filenamePart keeps the company verbatim except for path separators
func filenamePart(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}
