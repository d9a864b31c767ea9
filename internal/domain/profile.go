package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CognitiveProfile is the persisted history of a user's reasoning weaknesses.
type CognitiveProfile struct {
	RecurringFallacies map[string]int  `json:"recurring_fallacies"`
	CoreBeliefs        []string        `json:"core_beliefs"`
	StruggleHistory    []StruggleEntry `json:"struggle_history"`
}

// StruggleEntry records one analyzed statement.
type StruggleEntry struct {
	Timestamp    string `json:"timestamp"`
	Topic        string `json:"topic"`
	Fallacy      string `json:"fallacy"`
	StrategyUsed string `json:"strategy_used"`
}

// FallacyCount pairs a fallacy name with how often it was detected.
type FallacyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewCognitiveProfile returns an empty profile.
func NewCognitiveProfile() *CognitiveProfile {
	return &CognitiveProfile{
		RecurringFallacies: make(map[string]int),
		CoreBeliefs:        []string{},
		StruggleHistory:    []StruggleEntry{},
	}
}

// Normalize replaces nil collections left by a sparse JSON document.
func (p *CognitiveProfile) Normalize() {
	if p.RecurringFallacies == nil {
		p.RecurringFallacies = make(map[string]int)
	}
	if p.CoreBeliefs == nil {
		p.CoreBeliefs = []string{}
	}
	if p.StruggleHistory == nil {
		p.StruggleHistory = []StruggleEntry{}
	}
}

// Clone returns a deep copy.
func (p *CognitiveProfile) Clone() *CognitiveProfile {
	out := &CognitiveProfile{
		RecurringFallacies: make(map[string]int, len(p.RecurringFallacies)),
		CoreBeliefs:        append([]string{}, p.CoreBeliefs...),
		StruggleHistory:    append([]StruggleEntry{}, p.StruggleHistory...),
	}
	for k, v := range p.RecurringFallacies {
		out.RecurringFallacies[k] = v
	}
	return out
}

// Record applies one analyzed statement to the profile. The fallacy counter is
// bumped once unless the verdict names no fallacy. topicLength bounds the stored
// excerpt in characters.
func (p *CognitiveProfile) Record(input string, v Verdict, at time.Time, topicLength int) {
	p.Normalize()
	if v.HasFallacy() {
		p.RecurringFallacies[v.IdentifiedFallacy]++
	}
	p.StruggleHistory = append(p.StruggleHistory, StruggleEntry{
		Timestamp:    at.Format(time.RFC3339Nano),
		Topic:        TopicExcerpt(input, topicLength),
		Fallacy:      v.IdentifiedFallacy,
		StrategyUsed: v.AdversarialStrategy,
	})
}

// TopFallacies returns at most n fallacies ordered by count, highest first.
// Equal counts are ordered by name.
func (p *CognitiveProfile) TopFallacies(n int) []FallacyCount {
	ranked := make([]FallacyCount, 0, len(p.RecurringFallacies))
	for name, count := range p.RecurringFallacies {
		ranked = append(ranked, FallacyCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Summary renders the top n fallacies as context for the critic prompt.
func (p *CognitiveProfile) Summary(n int) string {
	top := p.TopFallacies(n)
	items := make([]string, len(top))
	for i, fc := range top {
		items[i] = fmt.Sprintf("%s (%d)", fc.Name, fc.Count)
	}
	return fmt.Sprintf("User's top recurring cognitive weaknesses: [%s]. Challenge these specifically.", strings.Join(items, ", "))
}

// TopicExcerpt keeps the first n characters of input followed by an ellipsis.
// It counts runes so multi-byte text is never split.
func TopicExcerpt(input string, n int) string {
	runes := []rune(input)
	if n >= 0 && len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
