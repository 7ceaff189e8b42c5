package pipeline

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/provider"
)

func someRange() models.DateRange {
	return models.DateRange{
		Start: civil.Date{Year: 2024, Month: 3, Day: 1},
		End:   civil.Date{Year: 2024, Month: 3, Day: 5},
	}
}

func TestRunTask_Success(t *testing.T) {
	p := &provider.MockProvider{}
	s, err := RunTask(context.Background(), p, "000300", models.Period5Min, someRange())
	require.NoError(t, err)
	assert.False(t, s.Empty())
	assert.Equal(t, "000300", s.Symbol)
	assert.Equal(t, models.Period5Min, s.Period)
	assert.EqualValues(t, 1, p.Calls())
}

func TestRunTask_ProviderError(t *testing.T) {
	p := &provider.MockProvider{Err: errors.New("connection refused")}
	_, err := RunTask(context.Background(), p, "000300", models.Period5Min, someRange())
	require.Error(t, err)
	assert.Equal(t, models.KindProviderError, models.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunTask_EmptyResult(t *testing.T) {
	p := &provider.MockProvider{Table: &models.RawTable{Columns: []string{"datetime"}}}
	_, err := RunTask(context.Background(), p, "000300", models.Period5Min, someRange())
	require.Error(t, err)
	assert.Equal(t, models.KindEmptyResult, models.KindOf(err))
}

func TestRunTask_NormalizerErrorsPassThrough(t *testing.T) {
	p := &provider.MockProvider{Table: &models.RawTable{
		Columns: []string{"datetime", "open", "close", "high", "low", "volume"},
		Rows: [][]string{
			{"2024-03-01 09:30", "1", "1.5", "2", "0.5", "-10"},
		},
	}}
	_, err := RunTask(context.Background(), p, "000300", models.Period5Min, someRange())
	require.Error(t, err)
	assert.Equal(t, models.KindMalformedData, models.KindOf(err))
}
