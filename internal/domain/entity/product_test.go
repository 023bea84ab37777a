package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestProduct_EffectivePrice(t *testing.T) {
	tests := []struct {
		name     string
		regular  string
		sale     *decimal.Decimal
		expected string
	}{
		{"no sale price", "100", nil, "100"},
		{"positive sale price", "100", ptr(decimal.NewFromInt(80)), "80"},
		{"zero sale price falls back", "100", ptr(decimal.Zero), "100"},
		{"negative sale price falls back", "100", ptr(decimal.NewFromInt(-5)), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{RegularPrice: decimal.RequireFromString(tt.regular), SalePrice: tt.sale}
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(p.EffectivePrice()))
		})
	}
}

func TestProduct_CanSupply(t *testing.T) {
	unmanaged := &Product{ManageStock: false}
	assert.True(t, unmanaged.CanSupply(1_000_000))

	managed := &Product{ManageStock: true, StockQuantity: ptr(5)}
	assert.True(t, managed.CanSupply(5))
	assert.False(t, managed.CanSupply(6))

	unknown := &Product{ManageStock: true}
	assert.False(t, unknown.CanSupply(1))
}

func TestProduct_IsAvailable(t *testing.T) {
	assert.True(t, (&Product{Status: ProductStatusActive}).IsAvailable())
	assert.False(t, (&Product{Status: ProductStatusDraft}).IsAvailable())
	assert.False(t, (&Product{Status: ProductStatusArchived}).IsAvailable())
}

func TestProduct_MainImage(t *testing.T) {
	pid := uuid.New()
	p := &Product{
		ID: pid,
		Images: []ProductImage{
			{URL: "b.jpg", SortOrder: 2},
			{URL: "a.jpg", SortOrder: 1},
		},
	}

	require.NotNil(t, p.MainImage())
	assert.Equal(t, "a.jpg", p.MainImage().URL)

	p.Images = append(p.Images, ProductImage{URL: "main.jpg", IsMain: true, SortOrder: 9})
	assert.Equal(t, "main.jpg", p.MainImage().URL)

	slim := p.WithMainImageOnly()
	require.Len(t, slim.Images, 1)
	assert.Equal(t, "main.jpg", slim.Images[0].URL)
	assert.Len(t, p.Images, 3, "original keeps all images")

	assert.Nil(t, (&Product{}).MainImage())
	assert.Empty(t, (&Product{}).WithMainImageOnly().Images)
}
