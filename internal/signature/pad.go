package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"sync"

	"golang.org/x/image/vector"
)

const (
	defaultPadWidth  = 600
	defaultPadHeight = 200
	maxPadSide       = 2000
	defaultPenWidth  = 2.5
	maxPenWidth      = 64
)

// Point is one sampled pen position in pad pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pen-down movement
type Stroke []Point

// PadData is the vector export of the signature-pad widget
type PadData struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	PenWidth float64  `json:"penWidth,omitempty"`
	Strokes  []Stroke `json:"strokes"`
}

// ParsePadData decodes the JSON posted by the pad widget
func ParsePadData(raw []byte) (PadData, error) {
	var d PadData
	if len(bytes.TrimSpace(raw)) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("invalid pad data: %w", err)
	}
	return d, nil
}

// Empty reports whether no stroke has any point
func (d PadData) Empty() bool {
	for _, s := range d.Strokes {
		if len(s) > 0 {
			return false
		}
	}
	return true
}

// Pad rasterises the strokes of the signature-pad widget to PNG
type Pad struct {
	Data PadData
}

// Capture implements Source
func (p Pad) Capture() ([]byte, error) {
	if p.Data.Empty() {
		return nil, ErrNoSignature
	}

	img := Rasterize(p.Data)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode pad signature: %w", err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws the strokes in black on a white canvas of the pad's size
func Rasterize(d PadData) *image.RGBA {
	w, h := clampSide(d.Width, defaultPadWidth), clampSide(d.Height, defaultPadHeight)
	pen := d.PenWidth
	if !(pen > 0) {
		pen = defaultPenWidth
	}
	pen = math.Min(pen, maxPenWidth)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	r := vector.NewRasterizer(w, h)
	half := pen / 2
	for _, raw := range d.Strokes {
		s := clampStroke(raw, float64(w), float64(h), half)
		switch len(s) {
		case 0:
			continue
		case 1:
			addSquare(r, s[0], half)
		default:
			for i := 1; i < len(s); i++ {
				addSegment(r, s[i-1], s[i], half)
				addSquare(r, s[i], half)
			}
			addSquare(r, s[0], half)
		}
	}
	r.Draw(dst, dst.Bounds(), image.Black, image.Point{})
	return dst
}

// addSegment adds the quad covering a pen segment. All quads share one
// winding direction so overlaps never cancel out.
func addSegment(r *vector.Rasterizer, a, b Point, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*half, dx/length*half

	r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	r.LineTo(float32(b.X+nx), float32(b.Y+ny))
	r.LineTo(float32(b.X-nx), float32(b.Y-ny))
	r.LineTo(float32(a.X-nx), float32(a.Y-ny))
	r.ClosePath()
}

// addSquare caps joints and dots
func addSquare(r *vector.Rasterizer, p Point, half float64) {
	r.MoveTo(float32(p.X-half), float32(p.Y-half))
	r.LineTo(float32(p.X-half), float32(p.Y+half))
	r.LineTo(float32(p.X+half), float32(p.Y+half))
	r.LineTo(float32(p.X+half), float32(p.Y-half))
	r.ClosePath()
}

// clampStroke pins every point just outside the canvas at most and drops
// NaN points, so huge values never overflow float32 in the rasteriser
func clampStroke(s Stroke, w, h, margin float64) Stroke {
	out := make(Stroke, 0, len(s))
	for _, p := range s {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		out = append(out, Point{
			X: math.Max(-margin, math.Min(p.X, w+margin)),
			Y: math.Max(-margin, math.Min(p.Y, h+margin)),
		})
	}
	return out
}

func clampSide(v, def int) int {
	if v <= 0 {
		return def
	}
	if v > maxPadSide {
		return maxPadSide
	}
	return v
}

// StrokeBuffer accumulates strokes streamed live from the pad widget
type StrokeBuffer struct {
	mu   sync.Mutex
	data PadData
}

// NewStrokeBuffer creates an empty buffer
func NewStrokeBuffer() *StrokeBuffer {
	return &StrokeBuffer{}
}

// Resize records the pad dimensions reported by the widget
func (b *StrokeBuffer) Resize(width, height int, pen float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Width, b.data.Height, b.data.PenWidth = width, height, pen
}

// Add appends one stroke and returns the stroke count
func (b *StrokeBuffer) Add(s Stroke) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Strokes = append(b.data.Strokes, append(Stroke(nil), s...))
	return len(b.data.Strokes)
}

// Clear drops all strokes but keeps the dimensions
func (b *StrokeBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Strokes = nil
}

// Snapshot returns a copy safe to rasterise while strokes keep arriving
func (b *StrokeBuffer) Snapshot() PadData {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.data
	out.Strokes = make([]Stroke, len(b.data.Strokes))
	copy(out.Strokes, b.data.Strokes)
	return out
}
