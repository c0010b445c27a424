package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"snapvalue-be/internal/config"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/pkg/analysis"

	"github.com/joho/godotenv"
)

// Sends a one-pixel probe job to the fallback endpoint to verify the
// valuation backend is reachable and the auth token is accepted.
func main() {
	fmt.Println("=== Debug: Valuation Upstream Check ===")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Warning: Could not load .env file: %v\n", err)
	}

	cfg := config.Load()
	fmt.Printf("📡 Stream endpoint:   %s\n", cfg.Analysis.StreamURL)
	fmt.Printf("📡 Fallback endpoint: %s\n", cfg.Analysis.FallbackURL)

	if cfg.Analysis.AuthToken == "" {
		fmt.Println("❌ ANALYSIS_AUTH_TOKEN not set; submissions would be rejected before reaching the network")
		return
	}

	log := logger.NewIsolatedLogger("logs/check_upstream.log")
	client, err := analysis.NewClient(analysis.ClientConfig{
		StreamURL:      cfg.Analysis.StreamURL,
		FallbackURL:    cfg.Analysis.FallbackURL,
		RequestTimeout: 30 * time.Second,
	}, log)
	if err != nil {
		fmt.Printf("❌ Failed to build client: %v\n", err)
		return
	}

	var probe bytes.Buffer
	if err := jpeg.Encode(&probe, image.NewRGBA(image.Rect(0, 0, 1, 1)), nil); err != nil {
		fmt.Printf("❌ Failed to encode probe image: %v\n", err)
		return
	}

	req := &analysis.JobRequest{
		Items: []analysis.JobItem{{
			ID:          "probe-1",
			Kind:        "photo",
			DisplayName: "connectivity probe",
			Data:        probe.Bytes(),
		}},
		CategoryID: "diagnostics",
		AuthToken:  cfg.Analysis.AuthToken,
	}

	fmt.Println("📡 Sending probe to fallback endpoint...")
	start := time.Now()
	raw, err := client.Analyze(context.Background(), req)
	if err != nil {
		fmt.Printf("❌ Probe failed: %v\n", err)
		return
	}

	result := analysis.Normalize(raw)
	fmt.Printf("✅ Upstream answered in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Decision:   %s\n", result.Decision)
	fmt.Printf("   Estimate:   %.2f\n", result.EstimatedValue)
	fmt.Printf("   Confidence: %.2f\n", result.Confidence)
	fmt.Printf("   Votes:      %d\n", len(result.Votes))
}
