package aggregation

import (
	"context"
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/balance"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/currency"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// group describes one rollup to compute.
type group struct {
	opts        balance.Options
	convertAsOf time.Time
	accountType model.AccountType
}

// rollup computes one group's balances, converts them in a single batch and
// totals them in the base currency.
func (e *Engine) rollup(ctx context.Context, userID string, l *ledger, g group) (service.Rollup, error) {
	out := service.Rollup{
		Type:                     g.accountType,
		TotalsByOriginalCurrency: make(map[string]decimal.Decimal),
		Accounts:                 []service.AccountLine{},
		ByCurrency:               service.CurrencyBreakdowns{},
		TotalInBaseCurrency:      decimal.Zero,
	}

	var items []currency.Item
	for _, acc := range l.ofType(g.accountType) {
		result := e.calculator.Calculate(acc, l.txns[acc.ID], g.opts)
		if !e.calculator.HasBalance(result.Balances) {
			continue
		}
		line := service.AccountLine{
			AccountID:   acc.ID,
			AccountName: acc.Name,
			CategoryID:  acc.Category.ID,
		}
		for _, code := range sortedCodes(result.Balances) {
			b := result.Balances[code]
			line.Balances = append(line.Balances, b)
			items = append(items, currency.Item{Amount: b.Amount, Currency: code})
		}
		out.Accounts = append(out.Accounts, line)
	}
	out.AccountCount = len(out.Accounts)
	if len(items) == 0 {
		return out, nil
	}

	asOf := g.convertAsOf
	results, err := e.converter.ConvertMultiple(ctx, userID, items, l.base, &asOf)
	if err != nil {
		if common.IsCancellation(err) {
			return service.Rollup{}, err
		}
		common.LogWarn(ctx, "Conversion failed, totalling base currency only", common.Fields{
			"type":  g.accountType,
			"base":  l.base,
			"error": err.Error(),
		})
		results = baseOnly(items, l.base)
	}
	if len(results) != len(items) {
		common.LogWarn(ctx, "Conversion returned a short batch, totalling base currency only", common.Fields{
			"type":     g.accountType,
			"expected": len(items),
			"got":      len(results),
		})
		results = baseOnly(items, l.base)
	}

	apply(&out, results, g.accountType == model.AccountTypeLiability)
	return out, nil
}

// baseOnly stands in for a failed conversion batch: base-currency amounts
// count as-is and everything else contributes nothing.
func baseOnly(items []currency.Item, base string) []currency.ConversionResult {
	results := make([]currency.ConversionResult, len(items))
	for i, item := range items {
		code := model.NormalizeCurrencyCode(item.Currency)
		results[i] = currency.ConversionResult{
			OriginalAmount:   item.Amount,
			OriginalCurrency: code,
			TargetCurrency:   base,
		}
		if code == base {
			results[i].ConvertedAmount = item.Amount
			results[i].ExchangeRate = decimal.NewFromInt(1)
			results[i].Success = true
			continue
		}
		results[i].ConvertedAmount = decimal.Zero
		results[i].Error = "exchange rates unavailable"
	}
	return results
}

// apply distributes conversion results, in item order, back over the
// account lines and builds the per-currency breakdown. With magnitudes set,
// an account whose converted total is negative has every amount negated, so
// each account counts as the size of its net position.
func apply(out *service.Rollup, results []currency.ConversionResult, magnitudes bool) {
	byCode := make(map[string]*service.CurrencyBreakdown)
	next := 0

	for i := range out.Accounts {
		line := &out.Accounts[i]
		line.Total = decimal.Zero
		lineResults := results[next : next+len(line.Balances)]
		next += len(line.Balances)

		for _, r := range lineResults {
			line.Total = line.Total.Add(r.ConvertedAmount)
			if !r.Success {
				line.HasConversionErrors = true
			}
		}
		flip := magnitudes && line.Total.IsNegative()
		if flip {
			line.Total = line.Total.Neg()
		}

		for j := range line.Balances {
			b := &line.Balances[j]
			r := lineResults[j]

			converted, rate := r.ConvertedAmount, r.ExchangeRate
			if flip {
				b.Amount = b.Amount.Neg()
				converted = converted.Neg()
			}
			b.ConvertedAmount = &converted
			b.ExchangeRate = &rate
			b.Success = r.Success

			entry, ok := byCode[b.CurrencyCode]
			if !ok {
				entry = &service.CurrencyBreakdown{
					Currency:     b.CurrencyCode,
					ExchangeRate: rate,
					Success:      true,
				}
				byCode[b.CurrencyCode] = entry
			}
			entry.OriginalAmount = entry.OriginalAmount.Add(b.Amount)
			entry.ConvertedAmount = entry.ConvertedAmount.Add(converted)
			entry.AccountCount++
			entry.Success = entry.Success && r.Success
		}
		out.TotalInBaseCurrency = out.TotalInBaseCurrency.Add(line.Total)
		out.HasConversionErrors = out.HasConversionErrors || line.HasConversionErrors
	}

	for code, entry := range byCode {
		out.TotalsByOriginalCurrency[code] = entry.OriginalAmount
		out.ByCurrency = append(out.ByCurrency, *entry)
	}
	sort.Slice(out.ByCurrency, func(i, j int) bool {
		a, b := out.ByCurrency[i], out.ByCurrency[j]
		if c := a.ConvertedAmount.Abs().Cmp(b.ConvertedAmount.Abs()); c != 0 {
			return c > 0
		}
		return a.Currency < b.Currency
	})
}

func sortedCodes(balances map[string]model.Balance) []string {
	codes := make([]string, 0, len(balances))
	for code := range balances {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
