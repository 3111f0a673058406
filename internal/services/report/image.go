package report

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/signature"
)

// Flattened image geometry
const (
	ImageWidth   = 600
	ImageHeight  = 800
	ImageQuality = 95

	ImageTitle = "REPORTE DE VISITA"

	textLeft        = 30
	descriptionTop  = 280
	descriptionStep = 25
)

// SignatureOrigin is where the signature is pasted on the flattened image
var SignatureOrigin = image.Point{X: 350, Y: 650}

// line is one piece of text with the top edge of its box at Y
type line struct {
	Y      int
	Text   string
	Header bool
}

// imageLines lays out the text of the flattened image. Description lines
// are never wrapped and may run past the right edge.
func imageLines(rec models.VisitRecord) []line {
	lines := []line{
		{Y: 50, Text: ImageTitle, Header: true},
		{Y: 100, Text: "Fecha: " + rec.DateText()},
		{Y: 130, Text: "Empresa: " + rec.Company},
		{Y: 160, Text: "Técnico: " + rec.Name},
		{Y: 190, Text: "Actividad: " + string(rec.Purpose)},
	}
	y := descriptionTop
	for _, text := range rec.DescriptionLines() {
		lines = append(lines, line{Y: y, Text: text})
		y += descriptionStep
	}
	return lines
}

// Image renders the visit onto a white 600x800 canvas and encodes it as JPEG
func (c *Compiler) Image(rec models.VisitRecord, sig []byte) ([]byte, error) {
	img, err := signature.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, ImageWidth, ImageHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	header, body, release := c.fonts.Faces()
	defer release()

	for _, l := range imageLines(rec) {
		face := body
		if l.Header {
			face = header
		}
		drawText(canvas, face, textLeft, l.Y, l.Text)
	}

	sigBox := image.Rectangle{Min: SignatureOrigin, Max: SignatureOrigin.Add(image.Pt(SignatureWidth, SignatureHeight))}
	draw.Draw(canvas, sigBox, signature.Resize(img, SignatureWidth, SignatureHeight), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: ImageQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawText draws s with the top of the line box at y
func drawText(dst draw.Image, face font.Face, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
