package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairFromString(t *testing.T) {
	p, err := PairFromString("BTC-BRL")
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.Base)
	assert.Equal(t, "BRL", p.Quote)
	assert.Equal(t, "BTC-BRL", p.Symbol())

	for _, bad := range []string{"", "BTC", "BTC-", "-BRL", "BTC-BRL-X"} {
		_, err := PairFromString(bad)
		assert.Error(t, err, bad)
	}
}

func TestRuleKey(t *testing.T) {
	rule := Rule{Name: "buy_1"}

	cases := []struct {
		avg      string
		expected string
	}{
		{"10000", "buy_1_10000"},
		{"10000.01", "buy_1_10000"},
		{"10000.99", "buy_1_10000"},
		{"10001", "buy_1_10001"},
		{"0.5", "buy_1_0"},
	}
	for _, c := range cases {
		avg := decimal.RequireFromString(c.avg)
		assert.Equal(t, c.expected, rule.Key(avg), "avg %s", c.avg)
	}
}

func TestPercentageDiff(t *testing.T) {
	diff := PercentageDiff(decimal.NewFromInt(110), decimal.NewFromInt(100))
	assert.True(t, diff.Equal(decimal.NewFromFloat(0.1)), "got %s", diff)

	diff = PercentageDiff(decimal.NewFromInt(90), decimal.NewFromInt(100))
	assert.True(t, diff.Equal(decimal.NewFromFloat(-0.1)), "got %s", diff)

	diff = PercentageDiff(decimal.NewFromInt(100), decimal.Zero)
	assert.True(t, diff.IsZero())
}

func TestDefaultRulesOrdering(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 4)

	assert.Equal(t, SideSell, rules[0].Side)
	prev := rules[1].Threshold
	for _, r := range rules[2:] {
		assert.Equal(t, SideBuy, r.Side)
		assert.True(t, r.Threshold.LessThan(prev), "buy thresholds must descend")
		prev = r.Threshold
	}
}
