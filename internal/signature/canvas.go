package signature

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Canvas is the PNG export of the embedded drawing canvas, posted as a data URL
type Canvas struct {
	DataURL string
}

// Capture implements Source. An untouched canvas counts as no signature.
func (c Canvas) Capture() ([]byte, error) {
	raw := strings.TrimSpace(c.DataURL)
	if raw == "" {
		return nil, ErrNoSignature
	}

	data, err := decodeDataURL(raw)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoSignature
	}

	// Only drop the canvas when it decodes and is empty; undecodable bytes are
	// passed on so the emitters report them.
	if img, err := Decode(data); err == nil && IsBlank(img) {
		return nil, ErrNoSignature
	}
	return data, nil
}

// decodeDataURL extracts the payload of "data:image/png;base64,...."
func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, fmt.Errorf("canvas payload is not a data URL")
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("canvas data URL has no payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("canvas data URL must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("canvas data URL: %w", err)
	}
	return data, nil
}
