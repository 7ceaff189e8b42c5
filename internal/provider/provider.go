// Package provider abstracts the upstream market-data source. The
// pipeline depends only on the Provider shape; source selection and
// authentication stay out of the core.
package provider

import (
	"context"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// Provider fetches raw bars for one symbol, period, and date range.
// Implementations return whatever tabular shape the source emits; the
// normalizer owns turning it into a canonical series.
type Provider interface {
	FetchRaw(ctx context.Context, symbol string, period models.Period, rng models.DateRange) (*models.RawTable, error)
	Name() string
}
