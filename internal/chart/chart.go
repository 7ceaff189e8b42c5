// Package chart is the rendering boundary: the pipeline hands it ready
// series and titles, and implementations turn them into artifacts. The
// scheduler never calls in here; only the presentation layer does, and
// only for scenarios whose state is Ready.
package chart

import (
	"fmt"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// Renderer produces a chart artifact from a canonical series. name keys
// the artifact (a period label or a scenario label); the return value
// identifies it: a file path for file-based renderers, or an empty string
// when nothing durable is produced.
type Renderer interface {
	Render(s *models.Series, title, name string) (string, error)
}

// Filename is the conventional artifact name, e.g. "chart_30min.svg".
func Filename(name string) string {
	return fmt.Sprintf("chart_%s.svg", name)
}

// NoopRenderer discards render requests. Used when charting is disabled.
type NoopRenderer struct{}

func (NoopRenderer) Render(_ *models.Series, _, _ string) (string, error) { return "", nil }
