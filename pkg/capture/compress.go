package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// CompressorConfig tunes the image pipeline. Zero values fall back to
// defaults suited to mobile uploads.
type CompressorConfig struct {
	// MaxWidth / MaxHeight bound the resized image
	MaxWidth  int
	MaxHeight int
	// TargetBytes is the byte budget the quality loop aims for
	TargetBytes int
	// StartQuality / MinQuality / QualityStep drive the iterative
	// quality reduction
	StartQuality int
	MinQuality   int
	QualityStep  int
	// SkipBelowBytes: inputs at or under this size bypass compression
	SkipBelowBytes int
	// ThumbSize is the thumbnail bounding box edge
	ThumbSize int
}

func (c *CompressorConfig) applyDefaults() {
	if c.MaxWidth == 0 {
		c.MaxWidth = 1280
	}
	if c.MaxHeight == 0 {
		c.MaxHeight = 1280
	}
	if c.TargetBytes == 0 {
		c.TargetBytes = 512 * 1024
	}
	if c.StartQuality == 0 {
		c.StartQuality = 85
	}
	if c.MinQuality == 0 {
		c.MinQuality = 40
	}
	if c.QualityStep == 0 {
		c.QualityStep = 10
	}
	if c.SkipBelowBytes == 0 {
		c.SkipBelowBytes = 100 * 1024
	}
	if c.ThumbSize == 0 {
		c.ThumbSize = 160
	}
}

// CompressResult is the outcome of one compression pass.
type CompressResult struct {
	Data      []byte
	Thumbnail []byte
	Width     int
	Height    int
	Quality   int
	Skipped   bool
}

// Compressor shrinks captured stills for upload: resize into a bounding
// box, then walk the JPEG quality down until the byte budget or the
// quality floor is hit, whichever comes first.
type Compressor struct {
	cfg CompressorConfig
}

func NewCompressor(cfg CompressorConfig) *Compressor {
	cfg.applyDefaults()
	return &Compressor{cfg: cfg}
}

// Compress runs the full pass. Inputs at or under SkipBelowBytes are
// returned as-is (the re-encode cost is not justified); they serve as
// their own thumbnail.
func (c *Compressor) Compress(data []byte) (*CompressResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("compress: empty input")
	}
	if len(data) <= c.cfg.SkipBelowBytes {
		return &CompressResult{Data: data, Thumbnail: data, Skipped: true}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: decode image: %w", err)
	}

	scaled := fitInto(src, c.cfg.MaxWidth, c.cfg.MaxHeight, xdraw.BiLinear)

	quality := c.cfg.StartQuality
	var encoded []byte
	for {
		encoded, err = encodeJPEG(scaled, quality)
		if err != nil {
			return nil, fmt.Errorf("compress: encode jpeg: %w", err)
		}
		if len(encoded) <= c.cfg.TargetBytes || quality <= c.cfg.MinQuality {
			break
		}
		quality -= c.cfg.QualityStep
		if quality < c.cfg.MinQuality {
			quality = c.cfg.MinQuality
		}
	}

	thumb := fitInto(scaled, c.cfg.ThumbSize, c.cfg.ThumbSize, xdraw.ApproxBiLinear)
	thumbData, err := encodeJPEG(thumb, 70)
	if err != nil {
		return nil, fmt.Errorf("compress: encode thumbnail: %w", err)
	}

	bounds := scaled.Bounds()
	return &CompressResult{
		Data:      encoded,
		Thumbnail: thumbData,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Quality:   quality,
	}, nil
}

// Shrink is the second-pass safety net for payloads still over the upload
// ceiling: harder quality cuts, then progressive downscaling. Best effort;
// the result may still exceed the ceiling, in which case the server's
// payload rejection is the final authority.
func (c *Compressor) Shrink(data []byte, ceilingBytes int) ([]byte, error) {
	if len(data) <= ceilingBytes {
		return data, nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("shrink: decode image: %w", err)
	}

	best := data
	img := src
	for pass := 0; pass < 4; pass++ {
		for quality := 60; quality >= 20; quality -= 10 {
			encoded, err := encodeJPEG(img, quality)
			if err != nil {
				return nil, fmt.Errorf("shrink: encode jpeg: %w", err)
			}
			if len(encoded) < len(best) {
				best = encoded
			}
			if len(encoded) <= ceilingBytes {
				return encoded, nil
			}
		}
		bounds := img.Bounds()
		w := bounds.Dx() * 7 / 10
		h := bounds.Dy() * 7 / 10
		if w < 32 || h < 32 {
			break
		}
		img = fitInto(img, w, h, xdraw.ApproxBiLinear)
	}
	return best, nil
}

// fitInto scales src to fit a maxW x maxH bounding box, preserving aspect
// ratio and never upscaling.
func fitInto(src image.Image, maxW, maxH int, kernel xdraw.Interpolator) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxW && h <= maxH {
		return src
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	kernel.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
