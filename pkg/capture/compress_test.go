package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// makeJPEG renders a gradient so the encoder has real content to chew on.
func makeJPEG(t *testing.T, width, height, quality int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestCompressor_SkipBelowThreshold(t *testing.T) {
	comp := NewCompressor(CompressorConfig{SkipBelowBytes: 1 << 20})
	input := makeJPEG(t, 64, 64, 90)

	result, err := comp.Compress(input)
	if err != nil {
		t.Fatalf("Compress error = %v", err)
	}
	if !result.Skipped {
		t.Error("Skipped = false, want true for input under threshold")
	}
	if !bytes.Equal(result.Data, input) {
		t.Error("skipped input should pass through unchanged")
	}
	if !bytes.Equal(result.Thumbnail, input) {
		t.Error("skipped input should serve as its own thumbnail")
	}
}

func TestCompressor_ResizesIntoBoundingBox(t *testing.T) {
	comp := NewCompressor(CompressorConfig{
		MaxWidth:       640,
		MaxHeight:      640,
		SkipBelowBytes: 1,
	})
	input := makeJPEG(t, 1600, 1200, 95)

	result, err := comp.Compress(input)
	if err != nil {
		t.Fatalf("Compress error = %v", err)
	}
	if result.Skipped {
		t.Fatal("Skipped = true, want full pass")
	}
	if result.Width > 640 || result.Height > 640 {
		t.Errorf("result %dx%d exceeds 640x640 bounding box", result.Width, result.Height)
	}
	// Aspect ratio of 4:3 preserved.
	if result.Width != 640 || result.Height != 480 {
		t.Errorf("result %dx%d, want 640x480", result.Width, result.Height)
	}

	decoded, _, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("result does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != result.Width {
		t.Errorf("decoded width %d != reported %d", decoded.Bounds().Dx(), result.Width)
	}
	if len(result.Thumbnail) == 0 {
		t.Error("thumbnail missing")
	}
	thumb, _, err := image.Decode(bytes.NewReader(result.Thumbnail))
	if err != nil {
		t.Fatalf("thumbnail does not decode: %v", err)
	}
	if thumb.Bounds().Dx() > 160 || thumb.Bounds().Dy() > 160 {
		t.Errorf("thumbnail %v exceeds 160px box", thumb.Bounds())
	}
}

func TestCompressor_NeverUpscales(t *testing.T) {
	comp := NewCompressor(CompressorConfig{
		MaxWidth:       1280,
		MaxHeight:      1280,
		SkipBelowBytes: 1,
	})
	input := makeJPEG(t, 320, 240, 95)

	result, err := comp.Compress(input)
	if err != nil {
		t.Fatalf("Compress error = %v", err)
	}
	if result.Width != 320 || result.Height != 240 {
		t.Errorf("result %dx%d, want original 320x240 (no upscaling)", result.Width, result.Height)
	}
}

func TestCompressor_QualityFloor(t *testing.T) {
	comp := NewCompressor(CompressorConfig{
		MaxWidth:       640,
		MaxHeight:      640,
		TargetBytes:    10, // unreachable, forces the floor
		MinQuality:     40,
		SkipBelowBytes: 1,
	})
	input := makeJPEG(t, 800, 600, 95)

	result, err := comp.Compress(input)
	if err != nil {
		t.Fatalf("Compress error = %v", err)
	}
	if result.Quality != 40 {
		t.Errorf("Quality = %d, want floor 40", result.Quality)
	}
	if len(result.Data) == 0 {
		t.Error("result empty at quality floor")
	}
}

func TestCompressor_StopsAtByteBudget(t *testing.T) {
	comp := NewCompressor(CompressorConfig{
		MaxWidth:       640,
		MaxHeight:      640,
		TargetBytes:    1 << 20, // generous, first encode wins
		StartQuality:   85,
		SkipBelowBytes: 1,
	})
	input := makeJPEG(t, 800, 600, 95)

	result, err := comp.Compress(input)
	if err != nil {
		t.Fatalf("Compress error = %v", err)
	}
	if result.Quality != 85 {
		t.Errorf("Quality = %d, want 85 (budget met on first encode)", result.Quality)
	}
}

func TestCompressor_UndecodableInput(t *testing.T) {
	comp := NewCompressor(CompressorConfig{SkipBelowBytes: 1})
	if _, err := comp.Compress([]byte("definitely not an image")); err == nil {
		t.Error("Compress expected error for undecodable input, got nil")
	}
}

func TestCompressor_Shrink(t *testing.T) {
	comp := NewCompressor(CompressorConfig{})
	input := makeJPEG(t, 1600, 1200, 95)

	out, err := comp.Shrink(input, 8*1024)
	if err != nil {
		t.Fatalf("Shrink error = %v", err)
	}
	if len(out) >= len(input) {
		t.Errorf("Shrink produced %d bytes, want fewer than input %d", len(out), len(input))
	}

	// Already under the ceiling: untouched.
	small := makeJPEG(t, 32, 32, 60)
	out, err = comp.Shrink(small, 1<<20)
	if err != nil {
		t.Fatalf("Shrink error = %v", err)
	}
	if !bytes.Equal(out, small) {
		t.Error("Shrink modified a payload already under the ceiling")
	}
}
