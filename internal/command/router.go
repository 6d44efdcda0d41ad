package command

import (
	"context"
	"sort"

	accountrepo "opsdesk_backend/internal/accounts/repository"

	"github.com/google/uuid"
)

// Inbound is one normalized inbound message. Upper is the uppercased,
// whitespace-trimmed body used for keyword matching; Raw preserves the
// original text for payload extraction.
type Inbound struct {
	Account     accountrepo.Account
	PhoneDigits string
	Upper       string
	Raw         string
}

// Result is what a handler execution reports. It feeds the exchange
// log and telemetry, nothing else.
type Result struct {
	Success   bool
	RuleName  string
	ReplyCode string
	EventType string
	Reply     string
	LeadID    *uuid.UUID
	JobID     *uuid.UUID
}

// Rule binds a match predicate to a handler. Lower priority wins; the
// router evaluates rules in ascending priority order and dispatches
// the first match.
type Rule struct {
	Name     string
	Priority int
	Match    func(upper, raw string) bool
	Handle   func(ctx context.Context, in Inbound) (Result, error)
}

type Router struct {
	rules []Rule
}

// NewRouter sorts the rules once. Registration order never matters;
// ties break on name to keep dispatch deterministic.
func NewRouter(rules []Rule) *Router {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})
	return &Router{rules: sorted}
}

// Route returns the first rule whose predicate matches.
func (r *Router) Route(upper, raw string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Match(upper, raw) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules exposes the sorted rule list for introspection in tests.
func (r *Router) Rules() []Rule {
	return r.rules
}
