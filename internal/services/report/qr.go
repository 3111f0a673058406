package report

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCode encodes url as a PNG so the form can be opened from a phone
func QRCode(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty QR content")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}
