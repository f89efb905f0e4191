package quote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidInput is returned before any network activity when a request
// does not carry exactly one usable input.
var ErrInvalidInput = errors.New("invalid input")

// Request carries exactly one of a product page URL, inline base64 image
// data, or a hosted image identifier.
type Request struct {
	ProductURL      string
	InlineImageData string
	ImageReference  string
}

// Mode identifies which input a request uses.
type Mode int

const (
	ModeURL Mode = iota + 1
	ModeInlineImage
	ModeImageReference
)

func (m Mode) String() string {
	switch m {
	case ModeURL:
		return "url"
	case ModeInlineImage:
		return "inline_image"
	case ModeImageReference:
		return "image_reference"
	default:
		return "unknown"
	}
}

// Validate trims the inputs and reports which one is set.
func (r *Request) Validate() (Mode, error) {
	r.ProductURL = strings.TrimSpace(r.ProductURL)
	r.InlineImageData = strings.TrimSpace(r.InlineImageData)
	r.ImageReference = strings.TrimSpace(r.ImageReference)

	var modes []Mode
	if r.ProductURL != "" {
		modes = append(modes, ModeURL)
	}
	if r.InlineImageData != "" {
		modes = append(modes, ModeInlineImage)
	}
	if r.ImageReference != "" {
		modes = append(modes, ModeImageReference)
	}

	switch len(modes) {
	case 0:
		return 0, fmt.Errorf("%w: please provide either a product URL or upload an image", ErrInvalidInput)
	case 1:
	default:
		return 0, fmt.Errorf("%w: provide only one of product URL, image data or image ID", ErrInvalidInput)
	}

	if modes[0] == ModeURL {
		if _, err := pageDomain(r.ProductURL); err != nil {
			return 0, err
		}
	}
	return modes[0], nil
}

// pageDomain returns the lowercased host of an absolute http(s) URL.
func pageDomain(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: product URL is not a valid URL", ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: product URL must start with http:// or https://", ErrInvalidInput)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: product URL has no host", ErrInvalidInput)
	}
	return strings.ToLower(u.Host), nil
}
