package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/raine/product-price-finder/config"
	"github.com/raine/product-price-finder/internal/fetch"
	"github.com/raine/product-price-finder/internal/imageref"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-id>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nProbes every hosted-image candidate location and prints what each returned.\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  IMAGE_PROBE_TIMEOUT - Per-candidate timeout (default 10s)\n")
		os.Exit(1)
	}
	imageID := os.Args[1]

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	resolver := imageref.NewResolver(fetch.NewClient()).WithTimeout(cfg.ImageProbeTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	found := 0
	for _, r := range resolver.Diagnose(ctx, imageID) {
		switch {
		case r.Excluded:
			fmt.Printf("SKIP  %s (excluded host)\n", r.URL)
		case r.Err != nil:
			fmt.Printf("ERR   %s: %v\n", r.URL, r.Err)
		default:
			mark := "MISS"
			if r.Accepted {
				mark = "OK"
				found++
			}
			fmt.Printf("%-5s %s: status=%d type=%q bytes=%d\n", mark, r.URL, r.Status, r.ContentType, r.Bytes)
		}
	}

	fmt.Printf("\n%d candidate(s) returned a usable image\n", found)
}
