package estimate

import (
	"crypto/md5"
	"fmt"
	"math/big"

	"github.com/raine/product-price-finder/internal/llm"
)

var hundred = big.NewInt(100)

// DemoAnalysis picks a canned analysis for imageID. The same id always
// yields the same product.
func (t *Tables) DemoAnalysis(imageID string) llm.ProductAnalysis {
	sum := md5.Sum([]byte(imageID))
	h := new(big.Int).SetBytes(sum[:])

	selector := int(new(big.Int).Mod(h, hundred).Int64())
	group := t.Demo.Buckets[len(t.Demo.Buckets)-1].Group
	for _, b := range t.Demo.Buckets {
		if selector < b.Below {
			group = b.Group
			break
		}
	}

	products := t.groups[group]
	idx := new(big.Int).Mod(h, big.NewInt(int64(len(products)))).Int64()
	p := products[idx]

	return llm.ProductAnalysis{
		ProductName:         p.ProductName,
		Brand:               p.Brand,
		Category:            p.Category,
		Model:               p.Model,
		KeyFeatures:         p.KeyFeatures,
		EstimatedPriceRange: p.EstimatedPriceRange,
		Confidence:          t.Demo.Confidence,
	}.Normalize()
}

// DemoDisclaimer is the note attached to demo analyses.
func DemoDisclaimer(imageID string) string {
	short := []rune(imageID)
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Demo analysis for image ID: %s...", string(short))
}
