package report

import (
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font sizes of the flattened image
const (
	HeaderFontSize = 24
	BodyFontSize   = 18
)

// DefaultFontDirs are searched for a relative font name
var DefaultFontDirs = []string{
	"/usr/share/fonts/truetype/msttcorefonts",
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/TTF",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	`C:\Windows\Fonts`,
}

// FontSet is the resolved typeface of the reports. Without the preferred
// font the embedded Go Regular face is used, which covers Latin-1; a nil
// font means the ASCII-only bitmap face is the last resort.
type FontSet struct {
	font     *opentype.Font
	data     []byte
	source   string
	fallback bool
}

// Sources of the built-in faces
const (
	SourceGoRegular = "goregular"
	SourceBasicFont = "basicfont"
)

// FontAvailable reports whether path holds a parseable TrueType/OpenType font
func FontAvailable(path string) bool {
	_, err := parseFont(path)
	return err == nil
}

// ResolveFont returns the first usable location of name: the name itself,
// then name inside each dir. Empty when nothing matches.
func ResolveFont(name string, dirs []string) string {
	if name == "" {
		return ""
	}
	if FontAvailable(name) {
		return name
	}
	if filepath.IsAbs(name) {
		return ""
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if FontAvailable(candidate) {
			return candidate
		}
	}
	return ""
}

// LoadFontSet resolves name against dirs, falling back to the built-in faces
func LoadFontSet(name string, dirs []string) *FontSet {
	if path := ResolveFont(name, dirs); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if f, err := opentype.Parse(data); err == nil {
				return &FontSet{font: f, data: data, source: path}
			}
		}
	}
	if f, err := opentype.Parse(goregular.TTF); err == nil {
		return &FontSet{font: f, source: SourceGoRegular, fallback: true}
	}
	return &FontSet{source: SourceBasicFont, fallback: true}
}

func parseFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return opentype.Parse(data)
}

// Fallback reports whether the preferred font was unavailable
func (fs *FontSet) Fallback() bool {
	return fs.fallback
}

// Source is the path of the loaded font, or the name of the built-in face
func (fs *FontSet) Source() string {
	return fs.source
}

// TrueType returns the raw bytes of the preferred font when it was loaded
func (fs *FontSet) TrueType() ([]byte, bool) {
	return fs.data, len(fs.data) > 0
}

// Faces returns fresh header and body faces; opentype faces are not safe
// for concurrent use so every render gets its own. release closes them.
func (fs *FontSet) Faces() (header, body font.Face, release func()) {
	if fs.font != nil {
		h, errH := opentype.NewFace(fs.font, &opentype.FaceOptions{Size: HeaderFontSize, DPI: 72, Hinting: font.HintingFull})
		b, errB := opentype.NewFace(fs.font, &opentype.FaceOptions{Size: BodyFontSize, DPI: 72, Hinting: font.HintingFull})
		if errH == nil && errB == nil {
			return h, b, func() {
				h.Close()
				b.Close()
			}
		}
		if errH == nil {
			h.Close()
		}
		if errB == nil {
			b.Close()
		}
	}
	return basicfont.Face7x13, basicfont.Face7x13, func() {}
}
