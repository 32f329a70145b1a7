package currency

import (
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Strategy names how a rate was obtained.
type Strategy string

const (
	StrategyIdentity Strategy = "identity"
	StrategyDirect   Strategy = "direct"
	StrategyInverse  Strategy = "inverse"
	StrategyBridge   Strategy = "bridge"
)

var one = decimal.NewFromInt(1)

// Rate is a resolved conversion factor: amount(from) * Value = amount(to).
type Rate struct {
	// Date is the effective date of the oldest stored rate used. It is zero
	// for identity conversions.
	Date     time.Time
	Value    decimal.Decimal
	Strategy Strategy
	// Via is the intermediate currency of a bridged rate.
	Via string
}

type pair struct {
	from, to string
}

// RateTable is an immutable snapshot of stored exchange rates with
// forward-fill lookups: the rate for a pair on a date is the best stored rate
// effective on or before that date.
type RateTable struct {
	// byPair holds each pair's rates, best first for any given cutoff when
	// scanned in order and filtered by effective date.
	byPair     map[pair][]model.ExchangeRate
	currencies []string
}

// NewRateTable indexes rates. Records with a non-positive rate or identical
// currencies are skipped.
func NewRateTable(rates []model.ExchangeRate) *RateTable {
	t := &RateTable{byPair: make(map[pair][]model.ExchangeRate)}
	seen := make(map[string]bool)

	for _, r := range rates {
		from := model.NormalizeCurrencyCode(r.FromCurrency)
		to := model.NormalizeCurrencyCode(r.ToCurrency)
		if from == "" || to == "" || from == to || !r.Rate.IsPositive() {
			continue
		}
		r.FromCurrency, r.ToCurrency = from, to
		key := pair{from, to}
		t.byPair[key] = append(t.byPair[key], r)
		for _, code := range []string{from, to} {
			if !seen[code] {
				seen[code] = true
				t.currencies = append(t.currencies, code)
			}
		}
	}

	for key := range t.byPair {
		list := t.byPair[key]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Supersedes(list[j])
		})
	}
	sort.Strings(t.currencies)
	return t
}

// Len returns the number of usable stored rates.
func (t *RateTable) Len() int {
	n := 0
	for _, list := range t.byPair {
		n += len(list)
	}
	return n
}

// Currencies returns every currency that appears in a stored rate, in code
// order.
func (t *RateTable) Currencies() []string {
	return t.currencies
}

// Stored returns the best stored from→to rate effective on or before asOf.
func (t *RateTable) Stored(from, to string, asOf time.Time) (model.ExchangeRate, bool) {
	cutoff := model.DateOnly(asOf)
	for _, r := range t.byPair[pair{from, to}] {
		if model.OnOrBefore(r.EffectiveDate, cutoff) {
			return r, true
		}
	}
	return model.ExchangeRate{}, false
}

// resolver is one step of rate resolution.
type resolver func(t *RateTable, from, to, base string, asOf time.Time) (Rate, bool)

// strategies are tried in order; the first that succeeds wins.
var strategies = []resolver{identity, direct, inverse, bridge}

// Resolve finds the from→to rate as of asOf. base is tried first as the
// bridge currency.
func (t *RateTable) Resolve(from, to, base string, asOf time.Time) (Rate, bool) {
	from, to = model.NormalizeCurrencyCode(from), model.NormalizeCurrencyCode(to)
	for _, s := range strategies {
		if rate, ok := s(t, from, to, model.NormalizeCurrencyCode(base), asOf); ok {
			return rate, true
		}
	}
	return Rate{}, false
}

func identity(_ *RateTable, from, to, _ string, _ time.Time) (Rate, bool) {
	if from != to {
		return Rate{}, false
	}
	return Rate{Value: one, Strategy: StrategyIdentity}, true
}

func direct(t *RateTable, from, to, _ string, asOf time.Time) (Rate, bool) {
	r, ok := t.Stored(from, to, asOf)
	if !ok {
		return Rate{}, false
	}
	return Rate{Value: r.Rate, Date: model.DateOnly(r.EffectiveDate), Strategy: StrategyDirect}, true
}

func inverse(t *RateTable, from, to, _ string, asOf time.Time) (Rate, bool) {
	r, ok := t.Stored(to, from, asOf)
	if !ok {
		return Rate{}, false
	}
	return Rate{Value: invert(r.Rate), Date: model.DateOnly(r.EffectiveDate), Strategy: StrategyInverse}, true
}

// inverseScale is the number of decimal places an inverted rate keeps on top
// of the stored rate's integer digits.
const inverseScale = 24

// invert returns 1/rate. The scale grows with the rate's integer digits so
// large rates keep the same relative precision as small ones.
func invert(rate decimal.Decimal) decimal.Decimal {
	places := int32(inverseScale)
	if intDigits := int32(rate.NumDigits()) + rate.Exponent(); intDigits > 0 {
		places += intDigits
	}
	return one.DivRound(rate, places)
}

// hop is a single direct or inverse step.
func (t *RateTable) hop(from, to string, asOf time.Time) (Rate, bool) {
	if rate, ok := direct(t, from, to, "", asOf); ok {
		return rate, true
	}
	return inverse(t, from, to, "", asOf)
}

// bridge chains exactly two stored hops through an intermediate currency:
// the base currency first, then every other known currency in code order.
func bridge(t *RateTable, from, to, base string, asOf time.Time) (Rate, bool) {
	candidates := make([]string, 0, len(t.currencies)+1)
	if base != "" {
		candidates = append(candidates, base)
	}
	for _, code := range t.currencies {
		if code != base {
			candidates = append(candidates, code)
		}
	}

	for _, via := range candidates {
		if via == from || via == to {
			continue
		}
		first, ok := t.hop(from, via, asOf)
		if !ok {
			continue
		}
		second, ok := t.hop(via, to, asOf)
		if !ok {
			continue
		}
		date := first.Date
		if second.Date.Before(date) {
			date = second.Date
		}
		return Rate{
			Value:    first.Value.Mul(second.Value),
			Date:     date,
			Strategy: StrategyBridge,
			Via:      via,
		}, true
	}
	return Rate{}, false
}
