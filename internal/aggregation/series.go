package aggregation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"golang.org/x/sync/errgroup"
)

// monthEnds returns the last day of every month from from's month through
// to's month. The final point is capped at limit.
func monthEnds(from, to, limit time.Time) []time.Time {
	var points []time.Time
	end := model.DateOnly(to)
	if end.After(limit) {
		end = limit
	}
	for m := model.MonthStart(from); !m.After(end); m = m.AddDate(0, 1, 0) {
		p := model.MonthEnd(m)
		if p.After(end) {
			p = end
		}
		points = append(points, p)
	}
	return points
}

// NetWorthSeries samples net worth at each month end between from and to.
// The ledger is read once; points are computed concurrently up to the
// configured limit. progress, when set, is called after each point with the
// number completed so far; calls are serialised.
func (e *Engine) NetWorthSeries(ctx context.Context, userID string, from, to time.Time, progress func(done, total int)) (*service.NetWorthSeries, error) {
	if model.DateOnly(to).Before(model.DateOnly(from)) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidPeriod,
			from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	dates := monthEnds(from, to, e.today())
	if len(dates) == 0 {
		return &service.NetWorthSeries{Points: []service.NetWorthPoint{}}, nil
	}

	l, err := e.load(ctx, userID, dates[len(dates)-1])
	if err != nil {
		return nil, err
	}

	points := make([]service.NetWorthPoint, len(dates))
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.SeriesConcurrency)
	for i, day := range dates {
		g.Go(func() error {
			assets, err := e.rollup(gctx, userID, l, stockGroup(model.AccountTypeAsset, day))
			if err != nil {
				return err
			}
			liabilities, err := e.rollup(gctx, userID, l, stockGroup(model.AccountTypeLiability, day))
			if err != nil {
				return err
			}
			points[i] = service.NetWorthPoint{
				Date:                day,
				TotalAssets:         assets.TotalInBaseCurrency,
				TotalLiabilities:    liabilities.TotalInBaseCurrency,
				NetWorth:            assets.TotalInBaseCurrency.Sub(liabilities.TotalInBaseCurrency),
				HasConversionErrors: assets.HasConversionErrors || liabilities.HasConversionErrors,
			}
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(dates))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := &service.NetWorthSeries{BaseCurrency: l.base, Points: points}
	for _, p := range points {
		series.HasConversionErrors = series.HasConversionErrors || p.HasConversionErrors
	}
	return series, nil
}
