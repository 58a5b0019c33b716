package chat

import (
	"sort"
	"strings"
)

// MatchFlow returns the highest-priority active flow triggered by the
// message, or nil when nothing matches and the AI should answer. Keyword
// matching is case-insensitive substring containment, mirroring how the
// scripted flows were authored (multi-word triggers like "speak to
// someone" must match inside a sentence).
func MatchFlow(flows []Flow, message string) *Flow {
	normalized := strings.ToLower(message)

	var candidates []Flow
	for _, f := range flows {
		if !f.Active {
			continue
		}
		if flowTriggered(f, normalized) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	return &candidates[0]
}

func flowTriggered(f Flow, normalized string) bool {
	for _, kw := range f.TriggerKeywords {
		if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchIntent returns the highest-priority active flow whose trigger
// intents include the given intent name.
func MatchIntent(flows []Flow, intent string) *Flow {
	var best *Flow
	for i, f := range flows {
		if !f.Active {
			continue
		}
		for _, trigger := range f.TriggerIntents {
			if strings.EqualFold(trigger, intent) {
				if best == nil || f.Priority > best.Priority {
					best = &flows[i]
				}
				break
			}
		}
	}
	return best
}
