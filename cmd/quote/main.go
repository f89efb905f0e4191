package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raine/product-price-finder/config"
	"github.com/raine/product-price-finder/internal/app"
	"github.com/raine/product-price-finder/internal/quote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <url|image|id> <value>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n  url   <product page URL>\n")
		fmt.Fprintf(os.Stderr, "  image <path to image file>\n")
		fmt.Fprintf(os.Stderr, "  id    <hosted image ID>\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required for image analysis\n")
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var req quote.Request
	switch mode, value := os.Args[1], os.Args[2]; strings.ToLower(mode) {
	case "url":
		req.ProductURL = value
	case "image":
		data, err := os.ReadFile(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
			os.Exit(1)
		}
		req.InlineImageData = base64.StdEncoding.EncodeToString(data)
	case "id":
		req.ImageReference = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s (use url, image, or id)\n", mode)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ToolCallTimeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	res, err := a.Quotes.Resolve(ctx, req)
	if err != nil {
		var fe *quote.FetchError
		if errors.As(err, &fe) {
			fmt.Println(fe.Text())
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}

	fmt.Println(res.Text())
}
