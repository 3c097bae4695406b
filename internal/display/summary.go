// Package display renders the human-readable startup summary.
package display

import (
	"fmt"
	"strings"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(subtle).
			PaddingLeft(2)
)

// Summary is the startup snapshot shown before the loop starts.
type Summary struct {
	Pair         domain.Pair
	Balances     []domain.Balance
	AveragePrice decimal.Decimal
	// HasAverage is false when no purchase history exists yet.
	HasAverage bool
	Rules      []domain.Rule
}

// Render returns the styled startup banner.
func Render(s Summary) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("MBTRADER %s", s.Pair.String())))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("BALANCES"))
	b.WriteString("\n")
	if len(s.Balances) == 0 {
		b.WriteString(rowStyle.Render("no balances"))
		b.WriteString("\n")
	}
	for _, balance := range s.Balances {
		b.WriteString(rowStyle.Render(fmt.Sprintf("%s: available=%s total=%s",
			balance.Symbol, balance.Available.String(), balance.Total.String())))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("AVERAGE PURCHASE PRICE"))
	b.WriteString("\n")
	if s.HasAverage {
		b.WriteString(rowStyle.Render(fmt.Sprintf("%s %s", s.AveragePrice.StringFixed(2), s.Pair.Quote)))
	} else {
		b.WriteString(rowStyle.Render("no purchase history found"))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("RULES"))
	b.WriteString("\n")
	for _, rule := range s.Rules {
		b.WriteString(rowStyle.Render(fmt.Sprintf("%s: %s %s%% of available %s when price is %s%% above average",
			rule.Name,
			strings.ToUpper(string(rule.Side)),
			rule.Allocation.Mul(decimal.NewFromInt(100)).StringFixed(0),
			currencyFor(rule, s.Pair),
			rule.Threshold.Mul(decimal.NewFromInt(100)).StringFixed(0))))
		b.WriteString("\n")
	}

	return b.String()
}

func currencyFor(rule domain.Rule, pair domain.Pair) string {
	if rule.Side == domain.SideSell {
		return pair.Base
	}
	return pair.Quote
}
