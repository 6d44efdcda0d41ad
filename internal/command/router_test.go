package command

import (
	"context"
	"testing"
)

func stubRule(name string, priority int, match func(upper, raw string) bool) Rule {
	return Rule{
		Name:     name,
		Priority: priority,
		Match:    match,
		Handle: func(_ context.Context, _ Inbound) (Result, error) {
			return Result{Success: true}, nil
		},
	}
}

func TestRouterPicksLowestPriorityMatch(t *testing.T) {
	always := func(_, _ string) bool { return true }
	// Registered deliberately out of order.
	r := NewRouter([]Rule{
		stubRule("fallback", 100, always),
		stubRule("first", 1, always),
		stubRule("middle", 50, always),
	})

	rule, ok := r.Route("ANYTHING", "anything")
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Name != "first" {
		t.Errorf("matched %q, want first", rule.Name)
	}
}

func TestRouterSkipsNonMatchingRules(t *testing.T) {
	r := NewRouter([]Rule{
		stubRule("stop", 1, func(upper, _ string) bool { return upper == "STOP" }),
		stubRule("fallback", 100, func(_, _ string) bool { return true }),
	})

	rule, _ := r.Route("HELLO", "hello")
	if rule.Name != "fallback" {
		t.Errorf("matched %q, want fallback", rule.Name)
	}

	rule, _ = r.Route("STOP", "stop")
	if rule.Name != "stop" {
		t.Errorf("matched %q, want stop", rule.Name)
	}
}

func TestRouterTieBreaksOnName(t *testing.T) {
	always := func(_, _ string) bool { return true }
	a := NewRouter([]Rule{stubRule("b", 10, always), stubRule("a", 10, always)})
	b := NewRouter([]Rule{stubRule("a", 10, always), stubRule("b", 10, always)})

	ruleA, _ := a.Route("X", "x")
	ruleB, _ := b.Route("X", "x")
	if ruleA.Name != ruleB.Name {
		t.Errorf("dispatch depends on registration order: %q vs %q", ruleA.Name, ruleB.Name)
	}
}

func TestServiceRulePriorities(t *testing.T) {
	s := &Service{}
	rules := s.rules()

	priorities := map[string]int{}
	for _, r := range rules {
		priorities[r.Name] = r.Priority
	}

	if priorities["opt-out"] >= priorities["opt-in"] {
		t.Error("opt-out must outrank opt-in")
	}
	if priorities["book-with-payload"] >= priorities["bare-status-code"] {
		t.Error("compound payload rules must outrank bare codes")
	}
	if priorities["bare-status-code"] >= priorities["status-keyword"] {
		t.Error("numeric codes must outrank word keywords")
	}
	if priorities["free-text"] != 100 {
		t.Error("free-text fallback must be evaluated last")
	}
}

func TestCompoundPayloadWinsOverBareCode(t *testing.T) {
	s := &Service{}
	r := NewRouter(s.rules())

	rule, _ := r.Route("4 TUESDAY 2PM", "4 tuesday 2pm")
	if rule.Name != "book-with-payload" {
		t.Errorf("matched %q, want book-with-payload", rule.Name)
	}

	rule, _ = r.Route("4", "4")
	if rule.Name != "bare-status-code" {
		t.Errorf("matched %q, want bare-status-code", rule.Name)
	}

	rule, _ = r.Route("3 CUSTOMER PREFERS MORNINGS", "3 customer prefers mornings")
	if rule.Name != "note-with-payload" {
		t.Errorf("matched %q, want note-with-payload", rule.Name)
	}
}

func TestOptOutMatchesWholeMessageOnly(t *testing.T) {
	s := &Service{}
	r := NewRouter(s.rules())

	for _, keyword := range []string{"STOP", "UNSUBSCRIBE", "CANCEL", "END", "QUIT"} {
		rule, _ := r.Route(keyword, keyword)
		if rule.Name != "opt-out" {
			t.Errorf("%s matched %q, want opt-out", keyword, rule.Name)
		}
	}

	// CANCEL JOB is a job command, not a legal opt-out.
	rule, _ := r.Route("CANCEL JOB", "cancel job")
	if rule.Name != "job-action" {
		t.Errorf("CANCEL JOB matched %q, want job-action", rule.Name)
	}
}
