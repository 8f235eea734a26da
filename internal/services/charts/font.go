package charts

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
)

// Font is a TrueType font shared by the PDF text and the chart images.
// Hangul display names need one; the built-in fonts only cover Latin.
type Font struct {
	Data  []byte
	Chart *truetype.Font
}

// DefaultFontCandidates are well-known locations of Hangul-capable TTF fonts.
var DefaultFontCandidates = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/nanum/NanumGothic.ttf",
	"/usr/share/fonts/naver-nanum/NanumGothic.ttf",
	"/Library/Fonts/NanumGothic.ttf",
	"C:\\Windows\\Fonts\\malgun.ttf",
}

// DiscoverFont returns the first candidate path that is a regular file, or "".
func DiscoverFont(candidates ...string) string {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

// LoadFont reads and parses a TTF file. An empty path returns nil, nil.
func LoadFont(path string) (*Font, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return &Font{Data: data, Chart: parsed}, nil
}

func (f *Font) chartFont() *truetype.Font {
	if f == nil {
		return nil
	}
	return f.Chart
}
