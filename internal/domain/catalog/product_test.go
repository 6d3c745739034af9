package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewProduct(t *testing.T) {
	t.Run("derives stock from package and piece", func(t *testing.T) {
		p, err := NewProduct(NewProductInput{
			Name:         "Cement",
			Package:      intPtr(10),
			Piece:        intPtr(12),
			SellingPrice: decimal.NewFromInt(5),
		})
		require.NoError(t, err)
		require.NotNil(t, p.Stock)
		assert.Equal(t, 120, *p.Stock)
		assert.Equal(t, 1, p.GetVersion())
		assert.Equal(t, DefaultUnit, p.Unit)
	})

	t.Run("keeps explicit stock", func(t *testing.T) {
		p, err := NewProduct(NewProductInput{Name: "Cement", Package: intPtr(10), Piece: intPtr(10), Stock: intPtr(115)})
		require.NoError(t, err)
		assert.Equal(t, 115, *p.Stock)
	})

	t.Run("title-cases the unit label", func(t *testing.T) {
		p, err := NewProduct(NewProductInput{Name: "Nails", Unit: "box"})
		require.NoError(t, err)
		assert.Equal(t, "Box", p.Unit)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct(NewProductInput{Name: "  "})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("rejects negative counters", func(t *testing.T) {
		_, err := NewProduct(NewProductInput{Name: "Nails", Stock: intPtr(-1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})
}

func TestProduct_CostFor(t *testing.T) {
	t.Run("zero without buying price", func(t *testing.T) {
		p := &Product{Name: "Nails"}
		assert.True(t, p.CostFor(10).IsZero())
	})

	t.Run("buying price times units", func(t *testing.T) {
		p := &Product{Name: "Nails", BuyingPrice: decimal.NewNullDecimal(decimal.RequireFromString("2.50"))}
		assert.Equal(t, "25.00", p.CostFor(10).StringFixed(2))
	})
}

func TestProduct_ChangeSellingPrice(t *testing.T) {
	p := &Product{Name: "Nails", SellingPrice: decimal.NewFromInt(3)}

	old, err := p.ChangeSellingPrice(decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, old.Equal(decimal.NewFromInt(3)))
	assert.True(t, p.SellingPrice.Equal(decimal.NewFromInt(4)))

	_, err = p.ChangeSellingPrice(decimal.NewFromInt(-1))
	assert.Error(t, err)
}
