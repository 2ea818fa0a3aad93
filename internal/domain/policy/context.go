package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Context holds every policy input a single payroll computation needs:
// typed policy values, the applicable contribution rate per type, and the
// tax brackets for the computation year. It is built once per computation
// and treated as read-only afterwards.
type Context struct {
	AsOf     int // computation year the brackets were loaded for
	values   map[string]Value
	rates    []ContributionRate
	brackets []TaxBracket
}

func NewContext(year int, values map[string]Value, rates []ContributionRate, brackets []TaxBracket) (*Context, error) {
	sorted := make([]TaxBracket, len(brackets))
	copy(sorted, brackets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min.LessThan(sorted[j].Min) })
	if err := validateBrackets(year, sorted); err != nil {
		return nil, err
	}

	copied := make(map[string]Value, len(values))
	for k, v := range values {
		copied[k] = v
	}
	rateCopy := make([]ContributionRate, len(rates))
	copy(rateCopy, rates)
	sort.Slice(rateCopy, func(i, j int) bool {
		return rateCopy[i].ContributionType < rateCopy[j].ContributionType
	})

	return &Context{AsOf: year, values: copied, rates: rateCopy, brackets: sorted}, nil
}

// validateBrackets enforces the configuration invariant from the data
// model: brackets for a year cover [0, +inf) ascending with no gaps and
// exactly one open-ended top bracket.
func validateBrackets(year int, sorted []TaxBracket) error {
	if len(sorted) == 0 {
		return fmt.Errorf("%w: %d", ErrNoBracketsForYear, year)
	}
	if !sorted[0].Min.IsZero() {
		return fmt.Errorf("%w: first bracket starts at %s", ErrBracketCoverage, sorted[0].Min)
	}
	for i, b := range sorted {
		last := i == len(sorted)-1
		if last {
			if b.Max != nil {
				return fmt.Errorf("%w: top bracket must be open-ended", ErrBracketCoverage)
			}
			continue
		}
		if b.Max == nil {
			return fmt.Errorf("%w: open-ended bracket before top", ErrBracketCoverage)
		}
		if !sorted[i+1].Min.Equal(*b.Max) {
			return fmt.Errorf("%w: gap between %s and %s", ErrBracketCoverage, b.Max, sorted[i+1].Min)
		}
	}
	return nil
}

func (c *Context) NumberOr(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := c.values[key]; ok && v.Kind == KindNumber {
		return v.Number
	}
	return fallback
}

func (c *Context) StringOr(key, fallback string) string {
	if v, ok := c.values[key]; ok && v.Kind == KindString {
		return v.Text
	}
	return fallback
}

func (c *Context) BoolOr(key string, fallback bool) bool {
	if v, ok := c.values[key]; ok && v.Kind == KindBool {
		return v.Bool
	}
	return fallback
}

// StringList splits a comma-separated string policy into trimmed,
// lower-cased entries.
func (c *Context) StringList(key string) []string {
	raw := c.StringOr(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Rates returns the contribution rates in deterministic (type-sorted)
// order. Callers must not mutate the returned slice.
func (c *Context) Rates() []ContributionRate {
	return c.rates
}

// Brackets returns the year's tax brackets sorted ascending by Min.
// Callers must not mutate the returned slice.
func (c *Context) Brackets() []TaxBracket {
	return c.brackets
}
