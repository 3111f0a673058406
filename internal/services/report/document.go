package report

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/signature"
)

const (
	// DocumentTitle heads every visit report
	DocumentTitle = "REPORTE DE VISITA TÉCNICA"
	// SignatureCaption is printed under the signature
	SignatureCaption = "Firma del Técnico"

	docMargin     = 30.0
	docFont       = "Helvetica"
	docUTF8Font   = "ReportFont"
	docTitleSize  = 18.0
	docBodySize   = 11.0
	docLineHeight = 16.0
	docTextHeight = 14.0
	signatureName = "signature"
)

type field struct {
	label string
	value string
}

// Document renders a single visit as an A4 PDF (unit pt, 30pt margins).
// Layout top to bottom: title, date+technician, company, purpose, time
// window, description, signature box, caption.
//
// With a preferred TrueType font it is embedded as a UTF-8 font. Otherwise
// the core Helvetica font is used, which only covers cp1252: characters
// outside it (CJK, most Central European letters) do not render correctly.
func (c *Compiler) Document(rec models.VisitRecord, sig []byte) ([]byte, error) {
	img, err := signature.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	var sigPNG bytes.Buffer
	if err := png.Encode(&sigPNG, signature.Resize(img, SignatureWidth, SignatureHeight)); err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(docMargin, docMargin, docMargin)
	pdf.SetAutoPageBreak(true, docMargin)
	pdf.SetCreationDate(rec.Date)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(DocumentTitle, true)
	pdf.SetAuthor(rec.Name, true)
	pdf.AddPage()

	family, tr := documentFont(pdf, c.fonts)

	pdf.SetFont(family, "B", docTitleSize)
	pdf.CellFormat(0, 26, tr(DocumentTitle), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	writeFields(pdf, family, tr, field{"Fecha", rec.DateText()}, field{"Técnico", rec.Name})
	writeFields(pdf, family, tr, field{"Empresa", rec.Company})
	writeFields(pdf, family, tr, field{"Propósito", string(rec.Purpose)})
	writeFields(pdf, family, tr, field{"Horario", rec.TimeIn.String() + " - " + rec.TimeOut.String()})

	pdf.Ln(6)
	pdf.SetFont(family, "B", docBodySize+1)
	pdf.CellFormat(0, docLineHeight+2, tr("Descripción:"), "", 1, "L", false, 0, "")

	pdf.SetFont(family, "", docBodySize)
	pdf.MultiCell(0, docTextHeight, tr(rec.Description), "", "J", false)

	// Signature: fixed 200x100 box against the right margin
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(signatureName, opts, &sigPNG)

	pageW, pageH := pdf.GetPageSize()
	_, top, right, bottom := pdf.GetMargins()
	x := pageW - right - SignatureWidth
	y := pdf.GetY() + 12
	if y+SignatureHeight+docTextHeight > pageH-bottom {
		pdf.AddPage()
		y = top
	}
	pdf.ImageOptions(signatureName, x, y, SignatureWidth, SignatureHeight, false, opts, 0, "")

	pdf.SetY(y + SignatureHeight + 4)
	pdf.SetFont(family, "", docBodySize)
	pdf.CellFormat(0, docTextHeight, tr(SignatureCaption), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// documentFont registers the preferred TrueType font for both styles and
// returns its family with an identity translator. When there is none, or
// gofpdf cannot use it, the core font and a cp1252 translator are returned.
func documentFont(pdf *gofpdf.Fpdf, fonts *FontSet) (string, func(string) string) {
	if data, ok := fonts.TrueType(); ok {
		pdf.AddUTF8FontFromBytes(docUTF8Font, "", data)
		pdf.AddUTF8FontFromBytes(docUTF8Font, "B", data)
		// gofpdf only reports an unparseable font once it is selected
		pdf.SetFont(docUTF8Font, "", docBodySize)
		if pdf.Ok() {
			return docUTF8Font, func(s string) string { return s }
		}
		pdf.ClearError()
	}
	return docFont, pdf.UnicodeTranslatorFromDescriptor("")
}

// writeFields prints "Label: value" pairs on one line, labels in bold
func writeFields(pdf *gofpdf.Fpdf, family string, tr func(string) string, fields ...field) {
	for i, f := range fields {
		if i > 0 {
			pdf.SetFont(family, "", docBodySize)
			pdf.Write(docLineHeight, "   ")
		}
		pdf.SetFont(family, "B", docBodySize)
		pdf.Write(docLineHeight, tr(f.label+": "))
		pdf.SetFont(family, "", docBodySize)
		pdf.Write(docLineHeight, tr(f.value))
	}
	pdf.Ln(docLineHeight)
}
