package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortSpec whitelists the columns a list endpoint may order by.
type sortSpec struct {
	columns  map[string]bool
	fallback string
}

// orderSort backs GormOrderRepository.List
var orderSort = sortSpec{
	columns: map[string]bool{
		"order_date":   true,
		"created_at":   true,
		"total_amount": true,
		"status":       true,
	},
	fallback: "order_date",
}

// column returns the requested column when whitelisted, else the fallback.
func (s sortSpec) column(requested string) string {
	requested = strings.TrimSpace(requested)
	if s.columns[requested] {
		return requested
	}
	return s.fallback
}

// orderBy builds the ORDER BY clause. Anything other than "asc" sorts
// descending; id breaks ties so pages stay stable.
func (s sortSpec) orderBy(requested, direction string) clause.OrderBy {
	desc := !strings.EqualFold(strings.TrimSpace(direction), "asc")
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: s.column(requested)}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
