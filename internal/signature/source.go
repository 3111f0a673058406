// Package signature turns the different capture widgets of the visit form
// into raw signature image bytes.
package signature

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNoSignature means the widget produced nothing usable
	ErrNoSignature = errors.New("signature not provided")
	// ErrUnsupportedFormat means an upload was not a PNG or JPEG file
	ErrUnsupportedFormat = errors.New("signature must be a PNG or JPEG image")
	// ErrImageTooLarge means the header declares dimensions past the decode limits
	ErrImageTooLarge = errors.New("signature image dimensions exceed the limit")
)

// Decode limits, checked from the image header before any pixel is decoded
const (
	MaxImageSide   = 8000
	MaxImagePixels = 16 << 20
)

// Source yields the encoded signature image of one submission
type Source interface {
	Capture() ([]byte, error)
}

// Mode names a capture widget
type Mode string

const (
	ModeCamera Mode = "camera"
	ModeUpload Mode = "upload"
	ModeCanvas Mode = "canvas"
	ModePad    Mode = "pad"
)

// ParseMode validates a submitted capture mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCamera, ModeUpload, ModeCanvas, ModePad:
		return m, nil
	}
	return "", fmt.Errorf("unknown capture mode %q", s)
}

// Camera is a snapshot taken with the phone camera input
type Camera struct {
	Snapshot *multipart.FileHeader
}

// Capture implements Source
func (c Camera) Capture() ([]byte, error) {
	return readPart(c.Snapshot, 0)
}

// Upload is an image file picked from the device. Only PNG and JPEG are accepted.
type Upload struct {
	File     *multipart.FileHeader
	MaxBytes int64
}

// Capture implements Source
func (u Upload) Capture() ([]byte, error) {
	data, err := readPart(u.File, u.MaxBytes)
	if err != nil {
		return nil, err
	}
	switch http.DetectContentType(data) {
	case "image/png", "image/jpeg":
		return data, nil
	}
	return nil, ErrUnsupportedFormat
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrNoSignature
	}
	if limit > 0 && fh.Size > limit {
		return nil, fmt.Errorf("signature file exceeds %d bytes", limit)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open signature part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature part: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoSignature
	}
	return data, nil
}

// Decode decodes any registered raster format (PNG, JPEG, BMP, WebP).
// Images larger than MaxImageSide or MaxImagePixels are refused up front.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrNoSignature
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide || cfg.Width*cfg.Height > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Resize scales src to exactly w×h, ignoring its aspect ratio. Transparent
// pixels are flattened onto white.
func Resize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// IsBlank reports whether every pixel is fully transparent or pure white
func IsBlank(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			if c.R != 0xff || c.G != 0xff || c.B != 0xff {
				return false
			}
		}
	}
	return true
}
