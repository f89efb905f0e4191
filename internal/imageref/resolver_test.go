package imageref

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/raine/product-price-finder/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned responses keyed by URL and records every call.
// URLs without a canned response fail like an unresolvable host.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*fetch.Response
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string]*fetch.Response)}
}

func (f *fakeFetcher) on(url string, status int, contentType string, body []byte) {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	f.responses[url] = &fetch.Response{StatusCode: status, Header: h, Body: body}
}

func (f *fakeFetcher) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*fetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if res, ok := f.responses[url]; ok {
		return res, nil
	}
	return nil, errors.New("dial tcp: lookup host: no such host")
}

func (f *fakeFetcher) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.Greater(t, buf.Len(), MinImageSize)
	return buf.Bytes()
}

func TestResolve_AllCandidatesFail(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://api.puch.ai/images/abc", http.StatusNotFound, "", nil)
	f.on("https://api.puch.ai/v1/images/abc", http.StatusForbidden, "", nil)
	f.on("https://api.puch.ai/files/abc", http.StatusUnauthorized, "", nil)
	f.on("https://puch.ai/api/images/abc", http.StatusOK, "image/png", nil) // empty body
	f.on("https://puch.ai/images/abc", http.StatusInternalServerError, "", nil)
	// remaining candidates fail with a DNS error

	out := NewResolver(f).Resolve(context.Background(), "abc")

	assert.False(t, out.Found)
	assert.Equal(t, NotFound, out)
}

func TestResolve_ExcludedHostsNeverDialed(t *testing.T) {
	f := newFakeFetcher()

	NewResolver(f).Resolve(context.Background(), "abc")

	calls := f.called()
	assert.Len(t, calls, len(DefaultCandidates)-len(DefaultExcludedHosts))
	for _, u := range calls {
		assert.NotContains(t, u, "cdn.puch.ai")
		assert.NotContains(t, u, "media.puch.ai")
		assert.NotContains(t, u, "storage.puch.ai")
	}
	// Priority order is preserved.
	assert.Equal(t, "https://api.puch.ai/images/abc", calls[0])
	assert.Equal(t, "https://puch.ai/api/image?id=abc", calls[len(calls)-1])
}

func TestResolve_DirectImage(t *testing.T) {
	pngData := testPNG(t)
	f := newFakeFetcher()
	f.on("https://api.puch.ai/v1/images/abc", http.StatusOK, "image/png", pngData)
	f.on("https://api.puch.ai/files/abc", http.StatusOK, "image/png", pngData)

	out := NewResolver(f).Resolve(context.Background(), "abc")

	require.True(t, out.Found)
	assert.Equal(t, pngData, out.Data)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.Equal(t, "https://api.puch.ai/v1/images/abc", out.Candidate)
	// Stops at the first success.
	assert.Len(t, f.called(), 2)
}

func TestResolve_TinyImageRejected(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://api.puch.ai/images/abc", http.StatusOK, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})

	out := NewResolver(f).Resolve(context.Background(), "abc")
	assert.False(t, out.Found)
}

func TestResolve_JSONInlineData(t *testing.T) {
	pngData := testPNG(t)
	encoded := base64.StdEncoding.EncodeToString(pngData)
	f := newFakeFetcher()
	f.on("https://api.puch.ai/images/abc", http.StatusOK, "application/json; charset=utf-8",
		[]byte(`{"status":"ok","data":"`+encoded+`"}`))

	out := NewResolver(f).Resolve(context.Background(), "abc")

	require.True(t, out.Found)
	assert.Equal(t, pngData, out.Data)
}

func TestResolve_JSONLinkFetchedOnce(t *testing.T) {
	pngData := testPNG(t)
	f := newFakeFetcher()
	f.on("https://api.puch.ai/images/abc", http.StatusOK, "application/json",
		[]byte(`{"image_url":"https://files.example.com/abc.png"}`))
	f.on("https://files.example.com/abc.png", http.StatusOK, "image/png", pngData)

	out := NewResolver(f).Resolve(context.Background(), "abc")

	require.True(t, out.Found)
	assert.Equal(t, pngData, out.Data)
	assert.Equal(t, "https://files.example.com/abc.png", out.Candidate)
	assert.Equal(t, []string{"https://api.puch.ai/images/abc", "https://files.example.com/abc.png"}, f.called())
}

func TestResolve_TextBase64(t *testing.T) {
	pngData := testPNG(t)
	f := newFakeFetcher()
	f.on("https://api.puch.ai/images/abc", http.StatusOK, "text/plain", []byte("not base64 at all, just a long enough sentence to pass the minimum length check for inline data....."))
	f.on("https://api.puch.ai/v1/images/abc", http.StatusOK, "text/plain", []byte(base64.StdEncoding.EncodeToString(pngData)+"\n"))

	out := NewResolver(f).Resolve(context.Background(), "abc")

	require.True(t, out.Found)
	assert.Equal(t, "https://api.puch.ai/v1/images/abc", out.Candidate)
	assert.Equal(t, pngData, out.Data)
}

func TestResolve_ParallelKeepsPriority(t *testing.T) {
	pngData := testPNG(t)
	f := newFakeFetcher()
	f.on("https://puch.ai/files/abc", http.StatusOK, "image/png", pngData)
	f.on("https://api.puch.ai/files/abc", http.StatusOK, "image/png", pngData)

	out := NewResolver(f).WithParallel(true).Resolve(context.Background(), "abc")

	require.True(t, out.Found)
	assert.Equal(t, "https://api.puch.ai/files/abc", out.Candidate)
	assert.Len(t, f.called(), len(DefaultCandidates)-len(DefaultExcludedHosts))
}

func TestResolve_EscapesIdentifier(t *testing.T) {
	f := newFakeFetcher()
	r := NewResolver(f).WithCandidates([]Candidate{
		{Template: "https://img.example.com/{id}"},
		{Template: "https://img.example.com/get?id={id}", Query: true},
	}, nil)

	r.Resolve(context.Background(), "a b/c")

	assert.Equal(t, []string{
		"https://img.example.com/a%20b%2Fc",
		"https://img.example.com/get?id=a+b%2Fc",
	}, f.called())
}

func TestResolveInline(t *testing.T) {
	pngData := testPNG(t)
	r := NewResolver(newFakeFetcher())

	t.Run("plain base64", func(t *testing.T) {
		out, err := r.ResolveInline(base64.StdEncoding.EncodeToString(pngData))
		require.NoError(t, err)
		assert.True(t, out.Found)
		assert.Equal(t, "image/png", out.MIMEType)
	})

	t.Run("data url", func(t *testing.T) {
		out, err := r.ResolveInline("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData))
		require.NoError(t, err)
		assert.Equal(t, pngData, out.Data)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := r.ResolveInline("%%% definitely not base64 %%%")
		assert.ErrorIs(t, err, ErrInvalidImageData)
	})

	t.Run("base64 but not an image", func(t *testing.T) {
		_, err := r.ResolveInline(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("hello "), 50)))
		assert.ErrorIs(t, err, ErrInvalidImageData)
	})
}

func TestDecodeProbeResponse(t *testing.T) {
	pngData := testPNG(t)
	encoded := base64.StdEncoding.EncodeToString(pngData)

	t.Run("inline beats link", func(t *testing.T) {
		shape, err := DecodeProbeResponse([]byte(`{"url":"https://x/y.png","blob":"` + encoded + `"}`))
		require.NoError(t, err)
		inline, ok := shape.(InlineShape)
		require.True(t, ok)
		assert.Equal(t, "blob", inline.Field)
	})

	t.Run("invalid inline falls back to link", func(t *testing.T) {
		long := bytes.Repeat([]byte("A"), 150)
		shape, err := DecodeProbeResponse([]byte(`{"data":"` + string(long) + `","src":"https://x/y.png","url":"https://x/z.png"}`))
		require.NoError(t, err)
		link, ok := shape.(LinkShape)
		require.True(t, ok)
		assert.Equal(t, []FieldValue{
			{Field: "url", Value: "https://x/z.png"},
			{Field: "src", Value: "https://x/y.png"},
		}, link.Links)
	})

	t.Run("unknown", func(t *testing.T) {
		shape, err := DecodeProbeResponse([]byte(`{"status":"pending","id":7}`))
		require.NoError(t, err)
		assert.Equal(t, UnknownShape{Keys: []string{"id", "status"}}, shape)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodeProbeResponse([]byte(`["a"]`))
		assert.Error(t, err)
	})
}

func TestDiagnose_ReportsEveryCandidate(t *testing.T) {
	f := newFakeFetcher()
	img := testPNG(t)
	f.on("https://api.puch.ai/images/abc", http.StatusNotFound, "", nil)
	f.on("https://puch.ai/images/abc", http.StatusOK, "image/png", img)
	f.on("https://puch.ai/files/abc", http.StatusOK, "image/png", img)

	reports := NewResolver(f).Diagnose(context.Background(), "abc")
	require.Len(t, reports, len(DefaultCandidates))

	byURL := make(map[string]ProbeReport)
	for _, r := range reports {
		byURL[r.URL] = r
	}

	assert.Equal(t, http.StatusNotFound, byURL["https://api.puch.ai/images/abc"].Status)
	assert.False(t, byURL["https://api.puch.ai/images/abc"].Accepted)
	assert.True(t, byURL["https://puch.ai/images/abc"].Accepted)
	assert.True(t, byURL["https://puch.ai/files/abc"].Accepted, "probing continues past the first success")
	assert.Equal(t, len(img), byURL["https://puch.ai/files/abc"].Bytes)
	assert.True(t, byURL["https://cdn.puch.ai/abc"].Excluded)
	assert.Error(t, byURL["https://api.puch.ai/v1/images/abc"].Err)

	assert.NotContains(t, f.called(), "https://cdn.puch.ai/abc")
}
