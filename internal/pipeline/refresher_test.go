package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/indexpulse/internal/domain/models"
	"github.com/guttosm/indexpulse/internal/provider"
)

func TestRefresher_InvalidSpec(t *testing.T) {
	s, err := NewScheduler(&provider.MockProvider{}, nil, Options{})
	require.NoError(t, err)

	_, err = NewRefresher("every now and then", s)
	assert.Error(t, err)
}

func TestRefresher_TriggersStartAll(t *testing.T) {
	p := &provider.MockProvider{}
	s, err := NewScheduler(p, []models.Scenario{testScenario("x")}, Options{})
	require.NoError(t, err)

	r, err := NewRefresher("@every 30ms", s)
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	waitPhase(t, s, "x", models.PhaseReady)
	assert.GreaterOrEqual(t, p.Calls(), int64(1))
}
