package records

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process record store with the same ordering as the
// Postgres store. It backs tests and database-less deployments.
type Memory struct {
	mu   sync.Mutex
	recs []Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *Memory) List(_ context.Context, start, maxItems int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ranked := make([]Record, len(m.recs))
	copy(ranked, m.recs)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].PlayTime != ranked[j].PlayTime {
			return ranked[i].PlayTime < ranked[j].PlayTime
		}
		return ranked[i].Name < ranked[j].Name
	})

	if start >= len(ranked) {
		return nil, nil
	}
	end := start + maxItems
	if end > len(ranked) {
		end = len(ranked)
	}
	page := make([]Record, end-start)
	copy(page, ranked[start:end])
	return page, nil
}
