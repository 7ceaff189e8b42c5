package pipeline

import (
	"context"

	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/normalize"
	"github.com/guttosm/indexpulse/internal/provider"
)

// RunTask executes one fetch unit of work: exactly one provider call,
// then normalization. Retries, if any, are the scheduler's policy, never
// the task's.
//
// Outcomes:
//   - ProviderError: transport, auth, or context failure from the source,
//     with the underlying message preserved.
//   - EmptyResult: the source answered with zero rows.
//   - MalformedData / UnorderedData: passed through from the normalizer.
func RunTask(ctx context.Context, p provider.Provider, symbol string, period models.Period, rng models.DateRange) (*models.Series, error) {
	raw, err := p.FetchRaw(ctx, symbol, period, rng)
	if err != nil {
		return nil, models.NewError(models.KindProviderError, p.Name(), err)
	}
	if raw.Empty() {
		return nil, models.Errorf(models.KindEmptyResult,
			"%s returned no rows for %s %s %s", p.Name(), symbol, period.Label(), rng)
	}
	return normalize.Series(raw, symbol, period)
}
