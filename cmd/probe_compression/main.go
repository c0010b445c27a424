package main

import (
	"fmt"
	"os"

	"snapvalue-be/internal/config"
	"snapvalue-be/pkg/capture"

	"github.com/joho/godotenv"
)

// Runs one image file through the configured compression pass and prints
// what the batch store would actually keep. Useful for tuning
// BATCH_COMPRESS_TARGET_BYTES against real device captures.
func main() {
	fmt.Println("=== Debug: Capture Compression Probe ===")

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/probe_compression <image.jpg> [more images...]")
		return
	}

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Warning: Could not load .env file: %v\n", err)
	}

	cfg := config.Load()
	comp := capture.NewCompressor(capture.CompressorConfig{
		MaxWidth:       cfg.Batch.MaxWidth,
		MaxHeight:      cfg.Batch.MaxHeight,
		TargetBytes:    cfg.Batch.TargetBytes,
		SkipBelowBytes: cfg.Batch.SkipBelowBytes,
	})
	fmt.Printf("📋 Bounding box %dx%d, target %d bytes, skip below %d bytes\n",
		cfg.Batch.MaxWidth, cfg.Batch.MaxHeight, cfg.Batch.TargetBytes, cfg.Batch.SkipBelowBytes)

	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			continue
		}

		res, err := comp.Compress(data)
		if err != nil {
			fmt.Printf("❌ %s: compression failed: %v\n", path, err)
			continue
		}

		if res.Skipped {
			fmt.Printf("✅ %s: %d bytes, under threshold, stored as-is\n", path, len(data))
			continue
		}
		ratio := float64(len(res.Data)) / float64(len(data)) * 100
		fmt.Printf("✅ %s: %d -> %d bytes (%.1f%%), %dx%d @ q%d, thumbnail %d bytes\n",
			path, len(data), len(res.Data), ratio, res.Width, res.Height, res.Quality, len(res.Thumbnail))
	}
}
