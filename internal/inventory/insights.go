package inventory

import (
	"context"

	"partscope/internal/insights"
)

// Narrator optionally expands an insight into free text. Wired only when a
// language model is configured; failures degrade to the canned guidance.
type Narrator interface {
	Narrate(ctx context.Context, in insights.Insight) (string, error)
}

// SetNarrator attaches an optional narrator after construction.
func (s *Service) SetNarrator(n Narrator) {
	s.narrator = n
}

// Insights derives guidance for the requested ids without mutating any
// record. Unresolvable ids are returned in the missing list, not as errors.
// Duplicate ids are collapsed; the input order is preserved.
func (s *Service) Insights(ctx context.Context, ids []string) ([]insights.Insight, []string, error) {
	found, err := s.store.GetMany(ids)
	if err != nil {
		return nil, nil, err
	}
	lookup := make(map[string]int, len(found))
	for i, item := range found {
		lookup[item.ID] = i
	}

	results := []insights.Insight{}
	missing := []string{}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		idx, ok := lookup[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		in := insights.Build(found[idx])
		if s.narrator != nil {
			if narrative, err := s.narrator.Narrate(ctx, in); err == nil {
				in.Narrative = narrative
			} else {
				s.log.WithError(err).Debug("insight narration failed")
			}
		}
		results = append(results, in)
	}
	return results, missing, nil
}
