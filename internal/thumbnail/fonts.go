package thumbnail

import (
	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSet holds the faces the compositor draws with. Resolution happens once
// at startup; a missing bundled font degrades to the basic bitmap face
// instead of failing the pipeline.
type FontSet struct {
	Watermark font.Face
	Title     font.Face
}

const (
	watermarkFontSize = 26
	titleFontSize     = 48
)

// LoadFonts loads the bundled TTF at path, falling back to a built-in face
// when the file is missing or unreadable.
func LoadFonts(path string, logger *zap.Logger) *FontSet {
	fs := &FontSet{
		Watermark: basicfont.Face7x13,
		Title:     basicfont.Face7x13,
	}
	if path == "" {
		logger.Info("no thumbnail font configured, using built-in face")
		return fs
	}

	wm, err := gg.LoadFontFace(path, watermarkFontSize)
	if err != nil {
		logger.Warn("thumbnail font unavailable, using built-in face",
			zap.String("path", path), zap.Error(err))
		return fs
	}
	fs.Watermark = wm

	if title, err := gg.LoadFontFace(path, titleFontSize); err == nil {
		fs.Title = title
	}
	return fs
}
