package paidupload

import (
	"errors"
	"math"
)

const bytesPerMB = 1 << 20

// Pricing maps a declared payload size to a price in cents.
type Pricing struct {
	MinPriceUSD   float64
	PricePerMBUSD float64
}

var ErrInvalidSize = errors.New("size must be positive")

// PriceCents returns round(max(min price, per-MB price * size) * 100).
func (p Pricing) PriceCents(sizeBytes int64) (int64, error) {
	if sizeBytes <= 0 {
		return 0, ErrInvalidSize
	}
	usd := p.PricePerMBUSD * float64(sizeBytes) / bytesPerMB
	if usd < p.MinPriceUSD {
		usd = p.MinPriceUSD
	}
	return int64(math.Round(usd * 100)), nil
}
