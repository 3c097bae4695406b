// Package strategy implements the rule-based trading decision engine.
package strategy

import (
	"context"
	"sort"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

type tradersvc interface {
	// Buy places a market buy specified by total cost in quote currency.
	Buy(ctx context.Context, cost decimal.Decimal) (orderID string, err error)
	// Sell places a market sell specified by base quantity.
	Sell(ctx context.Context, qty decimal.Decimal) (orderID string, err error)
}

type positionTracker interface {
	AvailableBalance(ctx context.Context, symbol string) (decimal.Decimal, error)
	AveragePurchasePrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// RuleStrategy evaluates the rule table against the deviation of the
// current price from the weighted average purchase price and executes at
// most one order per cycle.
//
// Executed rules are remembered per (rule, integer price bucket) key for
// the lifetime of the process; a key executes at most once while the
// average price stays inside the same bucket and re-arms when the bucket
// changes. A suppressed rule falls through to the next matching one, so
// over multiple cycles each threshold can fire once per bucket.
type RuleStrategy struct {
	pair    domain.Pair
	rules   []domain.Rule
	pricer  pricer
	trader  tradersvc
	tracker positionTracker
	logger  *zap.Logger

	minOrderFiat decimal.Decimal
	minOrderQty  decimal.Decimal

	executed map[string]struct{}

	averagePrice decimal.Decimal
	averageValid bool
}

// NewRuleStrategy returns a configured rule engine. Rules are evaluated
// sell side first, then buy rules from the highest threshold down.
func NewRuleStrategy(logger *zap.Logger, pair domain.Pair, rules []domain.Rule, pricer pricer, trader tradersvc,
	tracker positionTracker, minOrderFiat, minOrderQty decimal.Decimal) (*RuleStrategy, error) {

	if len(rules) == 0 {
		return nil, errors.New("rule set must not be empty")
	}
	for _, r := range rules {
		if r.Threshold.LessThanOrEqual(decimal.Zero) {
			return nil, errors.Errorf("rule %s has non-positive threshold %s", r.Name, r.Threshold.String())
		}
		if r.Allocation.LessThanOrEqual(decimal.Zero) || r.Allocation.GreaterThan(decimal.NewFromInt(1)) {
			return nil, errors.Errorf("rule %s allocation %s must be in (0, 1]", r.Name, r.Allocation.String())
		}
	}

	ordered := make([]domain.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Side != ordered[j].Side {
			return ordered[i].Side == domain.SideSell
		}
		return ordered[i].Threshold.GreaterThan(ordered[j].Threshold)
	})

	return &RuleStrategy{
		pair:         pair,
		rules:        ordered,
		pricer:       pricer,
		trader:       trader,
		tracker:      tracker,
		logger:       logger.With(zap.String("pair", pair.String())),
		minOrderFiat: minOrderFiat,
		minOrderQty:  minOrderQty,
		executed:     make(map[string]struct{}),
	}, nil
}

// Trade performs one evaluation cycle and executes the first matching,
// not-yet-executed rule. Returns nil, nil when no rule fires.
//
// Returns domain.ErrNoPurchaseHistory when no average price exists yet;
// evaluation is skipped for that cycle because no meaningful deviation can
// be computed.
func (s *RuleStrategy) Trade(ctx context.Context) (*domain.TradeEvent, error) {
	price, err := s.pricer.GetPrice(ctx, s.pair)
	if err != nil {
		return nil, errors.Wrapf(err, "pricer failed for pair %s", s.pair.String())
	}

	average, err := s.average(ctx)
	if err != nil {
		return nil, err
	}

	percentDiff := domain.PercentageDiff(price, average)

	s.logger.Debug("cycle evaluation",
		zap.String("price", price.String()),
		zap.String("average_price", average.String()),
		zap.String("percent_diff", percentDiff.String()))

	action := s.evaluate(percentDiff, average)
	if action == nil {
		return nil, nil
	}

	s.logger.Info("rule triggered",
		zap.String("rule", action.Rule.Name),
		zap.String("key", action.Key),
		zap.String("reason", action.Reason))

	return s.execute(ctx, *action, price, average)
}

// InvalidateAverage drops the cached average price so the next cycle
// recomputes it from order history.
func (s *RuleStrategy) InvalidateAverage() {
	s.averageValid = false
}

// average returns the cached cost basis, recomputing it only when unset or
// explicitly invalidated.
func (s *RuleStrategy) average(ctx context.Context) (decimal.Decimal, error) {
	if s.averageValid {
		return s.averagePrice, nil
	}

	average, err := s.tracker.AveragePurchasePrice(ctx, s.pair)
	if err != nil {
		return decimal.Zero, err
	}

	s.averagePrice = average
	s.averageValid = true

	return average, nil
}

// evaluate walks the ordered rule table and picks the first rule whose
// threshold is met and whose key has not executed in the current bucket.
func (s *RuleStrategy) evaluate(percentDiff, average decimal.Decimal) *domain.RuleAction {
	for _, rule := range s.rules {
		if percentDiff.LessThan(rule.Threshold) {
			continue
		}

		key := rule.Key(average)
		if _, done := s.executed[key]; done {
			s.logger.Debug("rule suppressed, already executed for bucket", zap.String("key", key))
			continue
		}

		return &domain.RuleAction{
			Rule: rule,
			Key:  key,
			Reason: "price " + percentDiff.Mul(decimal.NewFromInt(100)).StringFixed(2) +
				"% above average, threshold " + rule.Threshold.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%",
		}
	}

	return nil
}

func (s *RuleStrategy) execute(ctx context.Context, action domain.RuleAction, price, average decimal.Decimal) (*domain.TradeEvent, error) {
	intentID := uuid.NewString()

	logger := s.logger.With(
		zap.String("rule", action.Rule.Name),
		zap.String("intent_id", intentID))

	var (
		amount  decimal.Decimal
		orderID string
		err     error
	)

	switch action.Rule.Side {
	case domain.SideBuy:
		amount, orderID, err = s.executeBuy(ctx, action.Rule, logger)
	case domain.SideSell:
		amount, orderID, err = s.executeSell(ctx, action.Rule, logger)
	default:
		return nil, errors.Errorf("rule %s has unknown side %q", action.Rule.Name, action.Rule.Side)
	}
	if err != nil {
		// the rule stays armed: only a confirmed placement marks the key
		return nil, err
	}

	s.executed[action.Key] = struct{}{}

	if action.Rule.Side == domain.SideBuy {
		// a filled buy moves the cost basis
		s.InvalidateAverage()
	}

	return &domain.TradeEvent{
		Rule:         action.Rule.Name,
		Side:         action.Rule.Side,
		Pair:         s.pair,
		Amount:       amount,
		Price:        price,
		AveragePrice: average,
		OrderID:      orderID,
		IntentID:     intentID,
	}, nil
}

func (s *RuleStrategy) executeBuy(ctx context.Context, rule domain.Rule, logger *zap.Logger) (decimal.Decimal, string, error) {
	available, err := s.tracker.AvailableBalance(ctx, s.pair.Quote)
	if err != nil {
		return decimal.Zero, "", errors.Wrapf(err, "failed to fetch %s balance", s.pair.Quote)
	}
	if available.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, "", errors.Wrapf(domain.ErrInsufficientBalance, "%s available: %s", s.pair.Quote, available.String())
	}

	cost := available.Mul(rule.Allocation)
	if cost.LessThan(s.minOrderFiat) {
		return decimal.Zero, "", errors.Wrapf(domain.ErrBelowMinimumOrder,
			"buy cost %s %s under minimum %s", cost.String(), s.pair.Quote, s.minOrderFiat.String())
	}

	logger.Info("executing buy",
		zap.String("cost", cost.String()),
		zap.String("allocation", rule.Allocation.String()),
		zap.String("available", available.String()))

	orderID, err := s.trader.Buy(ctx, cost)
	if err != nil {
		return decimal.Zero, "", errors.Wrap(err, "buy order failed")
	}

	return cost, orderID, nil
}

func (s *RuleStrategy) executeSell(ctx context.Context, rule domain.Rule, logger *zap.Logger) (decimal.Decimal, string, error) {
	available, err := s.tracker.AvailableBalance(ctx, s.pair.Base)
	if err != nil {
		return decimal.Zero, "", errors.Wrapf(err, "failed to fetch %s balance", s.pair.Base)
	}
	if available.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, "", errors.Wrapf(domain.ErrInsufficientBalance, "%s available: %s", s.pair.Base, available.String())
	}

	qty := available.Mul(rule.Allocation)
	if qty.LessThan(s.minOrderQty) {
		return decimal.Zero, "", errors.Wrapf(domain.ErrBelowMinimumOrder,
			"sell qty %s %s under minimum %s", qty.String(), s.pair.Base, s.minOrderQty.String())
	}

	logger.Info("executing sell",
		zap.String("qty", qty.String()),
		zap.String("allocation", rule.Allocation.String()),
		zap.String("available", available.String()))

	orderID, err := s.trader.Sell(ctx, qty)
	if err != nil {
		return decimal.Zero, "", errors.Wrap(err, "sell order failed")
	}

	return qty, orderID, nil
}
