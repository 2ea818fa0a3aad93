package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func dp(v float64) *decimal.Decimal {
	dec := decimal.NewFromFloat(v)
	return &dec
}

func validBrackets() []TaxBracket {
	return []TaxBracket{
		{Year: 2026, Min: d(0), Max: dp(250000), BaseTax: d(0), ExcessRate: d(0)},
		{Year: 2026, Min: d(250000), Max: dp(400000), BaseTax: d(0), ExcessRate: d(0.20)},
		{Year: 2026, Min: d(400000), Max: nil, BaseTax: d(0), ExcessRate: d(0.25)},
	}
}

func TestNewContextSortsBrackets(t *testing.T) {
	brackets := validBrackets()
	// feed them out of order
	brackets[0], brackets[2] = brackets[2], brackets[0]

	pctx, err := NewContext(2026, nil, nil, brackets)
	require.NoError(t, err)

	got := pctx.Brackets()
	require.Len(t, got, 3)
	assert.True(t, got[0].Min.IsZero())
	assert.Nil(t, got[2].Max)
}

func TestNewContextRejectsEmptyBrackets(t *testing.T) {
	_, err := NewContext(2026, nil, nil, nil)
	require.ErrorIs(t, err, ErrNoBracketsForYear)
}

func TestNewContextRejectsNonZeroFirstBracket(t *testing.T) {
	brackets := validBrackets()[1:]
	_, err := NewContext(2026, nil, nil, brackets)
	require.ErrorIs(t, err, ErrBracketCoverage)
}

func TestNewContextRejectsGap(t *testing.T) {
	brackets := validBrackets()
	brackets[1].Min = d(260000)
	_, err := NewContext(2026, nil, nil, brackets)
	require.ErrorIs(t, err, ErrBracketCoverage)
}

func TestNewContextRejectsBoundedTopBracket(t *testing.T) {
	brackets := validBrackets()
	brackets[2].Max = dp(999999)
	_, err := NewContext(2026, nil, nil, brackets)
	require.ErrorIs(t, err, ErrBracketCoverage)
}

func TestNewContextRejectsOpenEndedMiddleBracket(t *testing.T) {
	brackets := validBrackets()
	brackets[1].Max = nil
	_, err := NewContext(2026, nil, nil, brackets)
	require.ErrorIs(t, err, ErrBracketCoverage)
}

func TestNumberOrFallsBackOnKindMismatch(t *testing.T) {
	values := map[string]Value{
		KeyOvertimeMultiplierRegular: {Kind: KindNumber, Number: d(1.5)},
		KeyHazardPositions:           {Kind: KindString, Text: "nurse"},
	}
	pctx, err := NewContext(2026, values, nil, validBrackets())
	require.NoError(t, err)

	assert.True(t, pctx.NumberOr(KeyOvertimeMultiplierRegular, d(1.25)).Equal(d(1.5)))
	// string-typed value must not be read as a number
	assert.True(t, pctx.NumberOr(KeyHazardPositions, d(1.25)).Equal(d(1.25)))
	assert.True(t, pctx.NumberOr("missing", d(9)).Equal(d(9)))
}

func TestStringListNormalizes(t *testing.T) {
	values := map[string]Value{
		KeyHazardPositions: {Kind: KindString, Text: " Nurse, RADIOLOG ,, emergency "},
	}
	pctx, err := NewContext(2026, values, nil, validBrackets())
	require.NoError(t, err)

	assert.Equal(t, []string{"nurse", "radiolog", "emergency"}, pctx.StringList(KeyHazardPositions))
	assert.Nil(t, pctx.StringList("missing"))
}

func TestRatesSortedByType(t *testing.T) {
	rates := []ContributionRate{
		{ContributionType: "pension"},
		{ContributionType: "health"},
		{ContributionType: "housing_fund"},
	}
	pctx, err := NewContext(2026, nil, rates, validBrackets())
	require.NoError(t, err)

	got := pctx.Rates()
	require.Len(t, got, 3)
	assert.Equal(t, "health", got[0].ContributionType)
	assert.Equal(t, "housing_fund", got[1].ContributionType)
	assert.Equal(t, "pension", got[2].ContributionType)
}

func TestContextCopiesInputs(t *testing.T) {
	values := map[string]Value{"k": {Kind: KindBool, Bool: true}}
	pctx, err := NewContext(2026, values, nil, validBrackets())
	require.NoError(t, err)

	values["k"] = Value{Kind: KindBool, Bool: false}
	assert.True(t, pctx.BoolOr("k", false))
}
