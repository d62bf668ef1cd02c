package column

import (
	"strings"

	"github.com/google/uuid"
)

// AutoNumberGenerator produces the next value for an auto-number
// column. Table owns one LastLongAutoNumber counter per table
// (spec.md §3 Table, §4.4 Auto-numbers) and calls NextLong; GUID
// auto-numbers need no stored counter since they are random.
type AutoNumberGenerator struct {
	lastLong int32
}

// NewAutoNumberGenerator seeds the generator from a table's persisted
// last_long_auto_number.
func NewAutoNumberGenerator(lastLong int32) *AutoNumberGenerator {
	return &AutoNumberGenerator{lastLong: lastLong}
}

// NextLong pre-increments and returns the next LONG auto-number value,
// matching spec.md §4.4: "the generator pre-increments and returns it."
func (g *AutoNumberGenerator) NextLong() int32 {
	g.lastLong++
	return g.lastLong
}

// LastLong returns the most recently issued value, for persisting back
// into the table definition page.
func (g *AutoNumberGenerator) LastLong() int32 { return g.lastLong }

// NextGUID returns a fresh random GUID auto-number value, already
// formatted in the braced canonical form other GUID values use.
func NextGUID() string {
	return "{" + strings.ToUpper(uuid.New().String()) + "}"
}
