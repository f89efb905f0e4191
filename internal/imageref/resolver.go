package imageref

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/raine/product-price-finder/internal/fetch"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultProbeTimeout is shorter than a page fetch since most candidates
	// are expected to miss.
	DefaultProbeTimeout = 10 * time.Second

	// MinImageSize is the smallest byte length accepted as a real image.
	MinImageSize = 100
)

// ErrInvalidImageData is returned for inline data that is not a decodable
// image. It is permanent and never retried.
var ErrInvalidImageData = errors.New("invalid image data")

var probeHeaders = map[string]string{
	"User-Agent":    "Product-Price-Finder-MCP/1.0",
	"Accept":        "image/*,application/json,text/plain",
	"Cache-Control": "no-cache",
}

// Outcome is the result of resolving an image reference. A zero Outcome
// (Found == false) means every candidate failed.
type Outcome struct {
	Found     bool
	Data      []byte
	MIMEType  string
	Candidate string
}

// NotFound is the outcome after all candidates are exhausted.
var NotFound = Outcome{}

// Resolver turns image references into validated image bytes.
type Resolver struct {
	fetcher    fetch.Fetcher
	candidates []Candidate
	excluded   map[string]bool
	timeout    time.Duration
	parallel   bool
}

// NewResolver creates a resolver over the default candidate table.
func NewResolver(fetcher fetch.Fetcher) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		timeout: DefaultProbeTimeout,
	}
	return r.WithCandidates(DefaultCandidates, DefaultExcludedHosts)
}

// WithCandidates replaces the candidate table and exclusion set.
func (r *Resolver) WithCandidates(candidates []Candidate, excludedHosts []string) *Resolver {
	r.candidates = candidates
	r.excluded = make(map[string]bool, len(excludedHosts))
	for _, h := range excludedHosts {
		r.excluded[strings.ToLower(h)] = true
	}
	return r
}

// WithTimeout sets the per-probe timeout.
func (r *Resolver) WithTimeout(timeout time.Duration) *Resolver {
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// WithParallel makes Resolve probe all candidates concurrently. The result of
// the highest-priority successful candidate is committed.
func (r *Resolver) WithParallel(parallel bool) *Resolver {
	r.parallel = parallel
	return r
}

// ResolveInline decodes base64 image data supplied directly by the caller.
func (r *Resolver) ResolveInline(data string) (Outcome, error) {
	img, err := decodeBase64Image(data)
	if err != nil {
		return NotFound, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}
	return Outcome{
		Found:     true,
		Data:      img,
		MIMEType:  mimetype.Detect(img).String(),
		Candidate: "inline",
	}, nil
}

// Resolve tries each candidate location for imageID in order. Failures of
// individual candidates are never returned as errors; NotFound is returned
// once every candidate has failed.
func (r *Resolver) Resolve(ctx context.Context, imageID string) Outcome {
	var targets []string
	for _, c := range r.candidates {
		if r.excluded[strings.ToLower(c.Host())] {
			log.Debug().Str("candidate", c.Template).Msg("skipping excluded image host")
			continue
		}
		targets = append(targets, c.URL(imageID))
	}

	var outcome Outcome
	if r.parallel {
		outcome = r.resolveParallel(ctx, targets)
	} else {
		outcome = r.resolveSequential(ctx, targets)
	}

	if !outcome.Found {
		log.Info().Str("imageID", imageID).Int("candidates", len(targets)).Msg("all image candidates failed")
		return NotFound
	}
	log.Info().Str("imageID", imageID).Str("candidate", outcome.Candidate).Int("bytes", len(outcome.Data)).Msg("image resolved")
	return outcome
}

func (r *Resolver) resolveSequential(ctx context.Context, targets []string) Outcome {
	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if out, ok := r.probe(ctx, target); ok {
			return out
		}
	}
	return NotFound
}

func (r *Resolver) resolveParallel(ctx context.Context, targets []string) Outcome {
	results := make([]Outcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			if out, ok := r.probe(gctx, target); ok {
				results[i] = out
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range results {
		if out.Found {
			return out
		}
	}
	return NotFound
}

// probe fetches one candidate and classifies its response by content type.
func (r *Resolver) probe(ctx context.Context, target string) (Outcome, bool) {
	logger := log.With().Str("candidate", target).Logger()

	res, err := r.fetcher.Get(ctx, target, probeHeaders, r.timeout)
	if err != nil {
		logger.Debug().Err(err).Msg("image candidate unreachable")
		return NotFound, false
	}
	return r.classify(ctx, target, res)
}

// classify inspects a candidate response by status and content type.
func (r *Resolver) classify(ctx context.Context, target string, res *fetch.Response) (Outcome, bool) {
	logger := log.With().Str("candidate", target).Logger()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		logger.Debug().Msg("image not found at candidate")
		return NotFound, false
	case http.StatusUnauthorized, http.StatusForbidden:
		logger.Debug().Int("status", res.StatusCode).Msg("access denied at candidate")
		return NotFound, false
	default:
		logger.Debug().Int("status", res.StatusCode).Msg("unexpected candidate status")
		return NotFound, false
	}

	if len(res.Body) == 0 {
		logger.Debug().Msg("empty candidate response")
		return NotFound, false
	}

	contentType := strings.ToLower(res.ContentType())
	switch {
	case strings.HasPrefix(contentType, "image/"):
		if mime, ok := validImage(res.Body); ok {
			return Outcome{Found: true, Data: res.Body, MIMEType: mime, Candidate: target}, true
		}
		logger.Debug().Int("bytes", len(res.Body)).Msg("image response failed validation")

	case strings.Contains(contentType, "application/json"):
		return r.fromJSON(ctx, target, res.Body)

	case strings.HasPrefix(contentType, "text/"):
		text := strings.TrimSpace(string(res.Body))
		if len(text) <= minInlineLength {
			return NotFound, false
		}
		if img, err := decodeBase64Image(text); err == nil {
			return Outcome{Found: true, Data: img, MIMEType: mimetype.Detect(img).String(), Candidate: target}, true
		}
		logger.Debug().Msg("text response is not base64 image data")

	default:
		logger.Debug().Str("contentType", contentType).Msg("unsupported candidate content type")
	}
	return NotFound, false
}

func (r *Resolver) fromJSON(ctx context.Context, target string, body []byte) (Outcome, bool) {
	shape, err := DecodeProbeResponse(body)
	if err != nil {
		log.Debug().Err(err).Str("candidate", target).Msg("invalid json from candidate")
		return NotFound, false
	}

	switch s := shape.(type) {
	case InlineShape:
		log.Debug().Str("candidate", target).Str("field", s.Field).Msg("found inline image data")
		return Outcome{Found: true, Data: s.Data, MIMEType: mimetype.Detect(s.Data).String(), Candidate: target}, true

	case LinkShape:
		for _, link := range s.Links {
			res, err := r.fetcher.Get(ctx, link.Value, probeHeaders, r.timeout)
			if err != nil {
				log.Debug().Err(err).Str("field", link.Field).Msg("secondary image fetch failed")
				continue
			}
			if res.StatusCode != http.StatusOK {
				continue
			}
			if mime, ok := validImage(res.Body); ok {
				return Outcome{Found: true, Data: res.Body, MIMEType: mime, Candidate: link.Value}, true
			}
		}

	case UnknownShape:
		log.Debug().Str("candidate", target).Strs("keys", s.Keys).Msg("json response has no image fields")
	}
	return NotFound, false
}

// validImage checks the minimum plausible size and that the bytes sniff as
// an image format.
func validImage(data []byte) (string, bool) {
	if len(data) <= MinImageSize {
		return "", false
	}
	mime := mimetype.Detect(data).String()
	return mime, strings.HasPrefix(mime, "image/")
}

// decodeBase64Image decodes standard or URL-safe base64 (padded or not),
// tolerating a data URL prefix and embedded whitespace, and validates the
// result as an image.
func decodeBase64Image(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, errors.New("empty base64 data")
	}

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err = enc.DecodeString(s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	if _, ok := validImage(data); !ok {
		return nil, fmt.Errorf("decoded %d bytes are not an image", len(data))
	}
	return data, nil
}
