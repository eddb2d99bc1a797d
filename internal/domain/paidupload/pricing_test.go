package paidupload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPricing = Pricing{MinPriceUSD: 1.00, PricePerMBUSD: 0.05}

func TestPriceCentsRejectsNonPositiveSize(t *testing.T) {
	_, err := testPricing.PriceCents(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = testPricing.PriceCents(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestPriceCentsAppliesMinimum(t *testing.T) {
	// 5 MB at $0.05/MB is $0.25, below the $1.00 floor.
	cents, err := testPricing.PriceCents(5 << 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), cents)
}

func TestPriceCentsAboveMinimum(t *testing.T) {
	// 40 MB at $0.05/MB is $2.00.
	cents, err := testPricing.PriceCents(40 << 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(200), cents)
}

func TestPriceCentsMonotonicNonDecreasing(t *testing.T) {
	sizes := []int64{1, 1024, 100 * 1024, 1 << 20, 5 << 20, 20 << 20, 40 << 20, 100 << 20}
	var prev int64
	for _, size := range sizes {
		cents, err := testPricing.PriceCents(size)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, cents, prev, "price must not decrease at size %d", size)
		assert.GreaterOrEqual(t, cents, int64(testPricing.MinPriceUSD*100))
		prev = cents
	}
}
