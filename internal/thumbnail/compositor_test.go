package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testCompositor() *Compositor {
	return NewCompositor(NewImageFetcher(5*time.Second), LoadFonts("", zap.NewNop()), zap.NewNop())
}

func encodeTestJPEG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func artServer(t *testing.T) *httptest.Server {
	t.Helper()
	backdrop := encodeTestJPEG(t, 400, 225, color.RGBA{40, 40, 120, 255})
	poster := encodeTestJPEG(t, 200, 300, color.RGBA{120, 40, 40, 255})

	mux := http.NewServeMux()
	mux.HandleFunc("/backdrop.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(backdrop)
	})
	mux.HandleFunc("/poster.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(poster)
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestComposite_FullArtwork(t *testing.T) {
	srv := artServer(t)

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:       "Inception",
		BackdropURL: srv.URL + "/backdrop.jpg",
		PosterURL:   srv.URL + "/poster.jpg",
		Watermark:   "@mychannel",
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if w, h := decodeDims(t, thumb.ImageBytes); w != CanvasWidth || h != CanvasHeight {
		t.Errorf("thumbnail dims = %dx%d, want %dx%d", w, h, CanvasWidth, CanvasHeight)
	}
	if thumb.WatermarkText != "@mychannel" {
		t.Errorf("WatermarkText = %q, want %q", thumb.WatermarkText, "@mychannel")
	}
}

func TestComposite_PosterOnlyDoublesAsBackdrop(t *testing.T) {
	srv := artServer(t)

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:     "Solo Leveling",
		PosterURL: srv.URL + "/poster.jpg",
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if w, h := decodeDims(t, thumb.ImageBytes); w != CanvasWidth || h != CanvasHeight {
		t.Errorf("thumbnail dims = %dx%d, want %dx%d", w, h, CanvasWidth, CanvasHeight)
	}
}

func TestComposite_PosterCardDrawnAtLeftColumn(t *testing.T) {
	srv := artServer(t)

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:       "Inception",
		BackdropURL: srv.URL + "/backdrop.jpg",
		PosterURL:   srv.URL + "/poster.jpg",
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(thumb.ImageBytes))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}

	// The red poster sits unblurred over the left column; the blue backdrop
	// fills the rest. Sample the poster card's center and a far-right point.
	ph := int(math.Round(CanvasHeight * posterHeightRatio))
	pw := ph * posterAspectW / posterAspectH
	pr, _, pb, _ := img.At(posterX+pw/2, CanvasHeight/2).RGBA()
	if pr <= pb {
		t.Errorf("poster center r=%d b=%d, want red-dominant poster pixel", pr, pb)
	}
	br, _, bb, _ := img.At(CanvasWidth-100, 100).RGBA()
	if bb <= br {
		t.Errorf("backdrop sample r=%d b=%d, want blue-dominant backdrop pixel", br, bb)
	}
}

func TestComposite_AllSourcesFailReturnsFallbackAndError(t *testing.T) {
	srv := artServer(t)

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:       "Unknown Title",
		BackdropURL: srv.URL + "/missing.jpg",
		PosterURL:   srv.URL + "/missing.jpg",
	})

	var sfErr *SourceFetchFailedError
	if !errors.As(err, &sfErr) {
		t.Fatalf("Composite() error = %v, want *SourceFetchFailedError", err)
	}
	if thumb == nil {
		t.Fatal("Composite() thumbnail = nil, want fallback canvas")
	}
	if w, h := decodeDims(t, thumb.ImageBytes); w != CanvasWidth || h != CanvasHeight {
		t.Errorf("fallback dims = %dx%d, want %dx%d", w, h, CanvasWidth, CanvasHeight)
	}
}

func TestComposite_NoSourcesAtAll(t *testing.T) {
	thumb, err := testCompositor().Composite(context.Background(), Input{Title: "Bare"})

	var sfErr *SourceFetchFailedError
	if !errors.As(err, &sfErr) {
		t.Fatalf("Composite() error = %v, want *SourceFetchFailedError", err)
	}
	if thumb == nil || len(thumb.ImageBytes) == 0 {
		t.Fatal("Composite() returned no fallback image")
	}
}

func TestComposite_OverrideSkipsArtworkFetch(t *testing.T) {
	// Artwork URLs point nowhere reachable; the override must make them moot.
	override := encodeTestJPEG(t, 640, 360, color.RGBA{10, 90, 10, 255})

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:       "Custom",
		BackdropURL: "http://127.0.0.1:1/backdrop.jpg",
		PosterURL:   "http://127.0.0.1:1/poster.jpg",
		Watermark:   "@wm",
		Override:    override,
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if w, h := decodeDims(t, thumb.ImageBytes); w != CanvasWidth || h != CanvasHeight {
		t.Errorf("override thumbnail dims = %dx%d, want %dx%d", w, h, CanvasWidth, CanvasHeight)
	}
}

func TestComposite_UndecodableOverrideFallsBackToArtwork(t *testing.T) {
	srv := artServer(t)

	thumb, err := testCompositor().Composite(context.Background(), Input{
		Title:       "Broken Upload",
		BackdropURL: srv.URL + "/backdrop.jpg",
		PosterURL:   srv.URL + "/poster.jpg",
		Override:    []byte("not an image"),
	})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if w, h := decodeDims(t, thumb.ImageBytes); w != CanvasWidth || h != CanvasHeight {
		t.Errorf("thumbnail dims = %dx%d, want %dx%d", w, h, CanvasWidth, CanvasHeight)
	}
}
