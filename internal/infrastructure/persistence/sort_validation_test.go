package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderSortColumn(t *testing.T) {
	cases := map[string]string{
		"":                          "order_date",
		"total_amount":              "total_amount",
		"  status ":                 "status",
		"TOTAL_AMOUNT":              "order_date",
		"user_email":                "order_date",
		"id; DROP TABLE orders;--":  "order_date",
		"order_date, (SELECT 1)":    "order_date",
		"CASE WHEN 1=1 THEN id END": "order_date",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, orderSort.column(in))
		})
	}
}

func TestOrderSortDirection(t *testing.T) {
	t.Run("asc in any case sorts ascending", func(t *testing.T) {
		for _, dir := range []string{"asc", "ASC", " Asc "} {
			by := orderSort.orderBy("created_at", dir)
			require.Len(t, by.Columns, 2)
			assert.False(t, by.Columns[0].Desc, dir)
			assert.Equal(t, "created_at", by.Columns[0].Column.Name)
		}
	})

	t.Run("anything else sorts descending", func(t *testing.T) {
		for _, dir := range []string{"", "desc", "sideways", "ASC; DROP TABLE orders"} {
			assert.True(t, orderSort.orderBy("", dir).Columns[0].Desc, dir)
		}
	})

	t.Run("id breaks ties in the same direction", func(t *testing.T) {
		by := orderSort.orderBy("status", "asc")
		assert.Equal(t, "id", by.Columns[1].Column.Name)
		assert.False(t, by.Columns[1].Desc)
	})
}
