// Package thumbnail builds the fixed-size 1280x720 post image: a blurred
// backdrop, a poster card on the left and a watermark pill bottom-right.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/models"
)

const (
	CanvasWidth  = 1280
	CanvasHeight = 720

	blurSigma          = 18
	backdropDarkenPct  = -35
	posterHeightRatio  = 0.82
	posterAspectW      = 2
	posterAspectH      = 3
	posterX            = 60
	posterCornerRadius = 12
	watermarkPadding   = 14
	watermarkMargin    = 10
	jpegQuality        = 92
)

// SourceFetchFailedError reports that no artwork could be fetched. The
// compositor still returns a usable fallback thumbnail alongside it.
type SourceFetchFailedError struct {
	Backdrop error
	Poster   error
}

func (e *SourceFetchFailedError) Error() string {
	return fmt.Sprintf("thumbnail sources unreachable (backdrop: %v, poster: %v)", e.Backdrop, e.Poster)
}

// Input describes one composite request.
type Input struct {
	Title       string
	BackdropURL string
	PosterURL   string
	Watermark   string
	Override    []byte // user-supplied image; when set, artwork URLs are ignored
}

type Compositor struct {
	fetch  *ImageFetcher
	fonts  *FontSet
	logger *zap.Logger
}

func NewCompositor(fetch *ImageFetcher, fonts *FontSet, logger *zap.Logger) *Compositor {
	return &Compositor{fetch: fetch, fonts: fonts, logger: logger}
}

// Composite produces the final thumbnail. The user always gets an image: if
// every source fails the solid fallback canvas is returned together with a
// *SourceFetchFailedError so the caller can log the degradation.
func (c *Compositor) Composite(ctx context.Context, in Input) (*models.RenderedThumbnail, error) {
	if len(in.Override) > 0 {
		img, err := imaging.Decode(bytes.NewReader(in.Override))
		if err == nil {
			filled := imaging.Fill(img, CanvasWidth, CanvasHeight, imaging.Center, imaging.Lanczos)
			dc := gg.NewContextForImage(filled)
			c.drawWatermark(dc, in.Watermark)
			return c.encode(dc.Image(), in.Watermark)
		}
		c.logger.Warn("override image undecodable, falling back to artwork", zap.Error(err))
	}

	var backdrop, poster image.Image
	var backdropErr, posterErr error

	if in.BackdropURL != "" {
		backdrop, backdropErr = c.fetch.Fetch(ctx, in.BackdropURL)
	} else {
		backdropErr = fmt.Errorf("no backdrop ref")
	}
	if in.PosterURL != "" {
		poster, posterErr = c.fetch.Fetch(ctx, in.PosterURL)
	} else {
		posterErr = fmt.Errorf("no poster ref")
	}

	if backdrop == nil && poster == nil {
		thumb, err := c.fallbackCanvas(in)
		if err != nil {
			return nil, err
		}
		return thumb, &SourceFetchFailedError{Backdrop: backdropErr, Poster: posterErr}
	}

	// The poster doubles as backdrop when no dedicated one exists.
	bgSource := backdrop
	if bgSource == nil {
		bgSource = poster
	}

	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetRGB255(15, 15, 20)
	dc.Clear()

	bg := imaging.Fill(bgSource, CanvasWidth, CanvasHeight, imaging.Center, imaging.Lanczos)
	bg = imaging.Blur(bg, blurSigma)
	bg = imaging.AdjustBrightness(bg, backdropDarkenPct)
	dc.DrawImage(bg, 0, 0)

	// Left-to-right darkening so caption overlays stay readable.
	grad := gg.NewLinearGradient(0, 0, CanvasWidth, 0)
	grad.AddColorStop(0, color.RGBA{0, 0, 0, 80})
	grad.AddColorStop(1, color.RGBA{0, 0, 0, 200})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, CanvasWidth, CanvasHeight)
	dc.Fill()

	if poster != nil {
		c.drawPosterCard(dc, poster)
	}
	c.drawWatermark(dc, in.Watermark)

	return c.encode(dc.Image(), in.Watermark)
}

func (c *Compositor) drawPosterCard(dc *gg.Context, poster image.Image) {
	ph := int(math.Round(CanvasHeight * posterHeightRatio))
	pw := ph * posterAspectW / posterAspectH
	px := posterX
	py := (CanvasHeight - ph) / 2

	resized := imaging.Fill(poster, pw, ph, imaging.Center, imaging.Lanczos)

	// Drop shadow behind the card for contrast against the blurred backdrop.
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRoundedRectangle(float64(px-5), float64(py+5), float64(pw+10), float64(ph+10), posterCornerRadius)
	dc.Fill()

	dc.DrawRoundedRectangle(float64(px), float64(py), float64(pw), float64(ph), posterCornerRadius)
	dc.Clip()
	dc.DrawImage(resized, px, py)
	dc.ResetClip()

	// Accent line to the right of the poster.
	dc.SetRGBA255(255, 200, 50, 180)
	dc.SetLineWidth(3)
	dc.DrawLine(float64(px+pw+20), float64(py+10), float64(px+pw+20), float64(py+ph-10))
	dc.Stroke()
}

func (c *Compositor) drawWatermark(dc *gg.Context, text string) {
	if text == "" {
		return
	}
	dc.SetFontFace(c.fonts.Watermark)
	tw, th := dc.MeasureString(text)

	x := float64(CanvasWidth) - tw - 2*watermarkPadding - watermarkMargin
	y := float64(CanvasHeight) - th - 2*watermarkPadding - watermarkMargin

	dc.SetRGBA(0, 0, 0, 0.63)
	dc.DrawRoundedRectangle(x, y, tw+2*watermarkPadding, th+2*watermarkPadding, 8)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawString(text, x+watermarkPadding, y+watermarkPadding+th)
}

// fallbackCanvas is the solid-color card used when no artwork is reachable.
func (c *Compositor) fallbackCanvas(in Input) (*models.RenderedThumbnail, error) {
	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	dc.SetRGB255(24, 26, 38)
	dc.Clear()

	if in.Title != "" {
		dc.SetFontFace(c.fonts.Title)
		dc.SetRGBA(1, 1, 1, 0.95)
		dc.DrawStringWrapped(in.Title, posterX, CanvasHeight/2, 0, 0.5, CanvasWidth-2*posterX, 1.3, gg.AlignLeft)
	}
	c.drawWatermark(dc, in.Watermark)

	return c.encode(dc.Image(), in.Watermark)
}

func (c *Compositor) encode(img image.Image, watermark string) (*models.RenderedThumbnail, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return &models.RenderedThumbnail{
		ImageBytes:    buf.Bytes(),
		Width:         CanvasWidth,
		Height:        CanvasHeight,
		WatermarkText: watermark,
	}, nil
}
