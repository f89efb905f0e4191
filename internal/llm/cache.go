package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/product-price-finder/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CachedModel wraps a VisionModel with a persistent reply cache.
type CachedModel struct {
	inner VisionModel
	store storage.VisionCache
	name  string
	group singleflight.Group
}

// Ensure CachedModel implements VisionModel
var _ VisionModel = (*CachedModel)(nil)

// NewCachedModel creates a cached model. A nil store disables caching.
func NewCachedModel(inner VisionModel, store storage.VisionCache) *CachedModel {
	c := &CachedModel{inner: inner, store: store}
	if g, ok := inner.(*GeminiModel); ok {
		c.name = g.model
	}
	return c
}

// cacheKey hashes the image and prompt. Each part is length prefixed to
// prevent boundary collisions.
func cacheKey(image []byte, prompt string) string {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, int64(len(image)))
	h.Write(image)
	binary.Write(h, binary.LittleEndian, int64(len(prompt)))
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Describe implements VisionModel with caching. Concurrent calls for the same
// image and prompt share one upstream request.
func (c *CachedModel) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	key := cacheKey(image, prompt)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", key[:16]).Msg("vision cache hit")
			return cached.Reply, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		reply, err := c.inner.Describe(ctx, image, mimeType, prompt)
		if err != nil {
			return "", err
		}

		if c.store != nil {
			entry := &storage.VisionCacheEntry{Reply: reply, Model: c.name}
			if err := c.store.SetVisionCache(key, entry); err != nil {
				log.Warn().Err(err).Msg("failed to cache vision result")
			} else {
				log.Debug().Str("hash", key[:16]).Msg("cached vision result")
			}
		}
		return reply, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Str("hash", key[:16]).Msg("vision call shared with concurrent request")
	}
	return v.(string), nil
}
