package vectorindex

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/codecompanion/pkg/types"
)

// Metric selects how query and stored vectors are compared.
// Every metric yields a score where higher means more similar.
type Metric string

const (
	// MetricCosine scores by cosine similarity in [-1, 1]
	MetricCosine Metric = "cosine"
	// MetricEuclidean scores by negative Euclidean distance
	MetricEuclidean Metric = "euclidean"
)

// DefaultMetric is used when none is configured
const DefaultMetric = MetricCosine

// ParseMetric resolves a configured metric name. Empty selects the default.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultMetric, nil
	case MetricCosine:
		return MetricCosine, nil
	case MetricEuclidean, "l2":
		return MetricEuclidean, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", types.ErrInvalidConfig, name)
	}
}

// score compares q (with magnitude qm) against a stored entry
func (m Metric) score(q []float32, qm float32, e *entry) float64 {
	switch m {
	case MetricEuclidean:
		return -float64(euclideanDistance(q, e.values))
	default:
		if qm == 0 || e.magnitude == 0 {
			return 0
		}
		sim := 1 - float64(cosineDistance(q, e.values, qm, e.magnitude))
		if math.IsNaN(sim) {
			return 0
		}
		return sim
	}
}
