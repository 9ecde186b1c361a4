package analysis

import (
	"sort"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
)

// DefaultRiskThreshold is the cutoff used when high-risk-only filtering
// is requested without an explicit threshold.
const DefaultRiskThreshold = 40

// QueueOptions controls priority queue construction
type QueueOptions struct {
	// HighRiskOnly drops objects scoring below Threshold
	HighRiskOnly bool

	// Threshold for HighRiskOnly; zero means DefaultRiskThreshold
	Threshold int

	// Limit caps the queue length; zero means unlimited
	Limit int
}

// BuildQueue orders object IDs by descending risk score. Ties may
// appear in any order.
func BuildQueue(objects []*entities.Object, diagnostics map[string][]*entities.Diagnostic, opts QueueOptions) []string {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultRiskThreshold
	}

	type scored struct {
		id    string
		score int
	}
	queue := make([]scored, 0, len(objects))
	for _, obj := range objects {
		score := RiskScore(diagnostics[obj.ID])
		if opts.HighRiskOnly && score < threshold {
			continue
		}
		queue = append(queue, scored{id: obj.ID, score: score})
	}

	sort.Slice(queue, func(i, j int) bool { return queue[i].score > queue[j].score })

	if opts.Limit > 0 && len(queue) > opts.Limit {
		queue = queue[:opts.Limit]
	}

	ids := make([]string, len(queue))
	for i, q := range queue {
		ids[i] = q.id
	}
	return ids
}
