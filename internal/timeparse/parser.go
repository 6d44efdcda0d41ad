// Package timeparse turns natural-language time phrases from booking
// commands into concrete timestamps.
package timeparse

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser resolves a phrase like "tue 2pm" relative to now.
type Parser interface {
	Parse(phrase string, now time.Time) (time.Time, error)
}

// ClarificationError carries the prompt that should be sent back to
// the operator verbatim when a phrase cannot be resolved.
type ClarificationError struct {
	Prompt string
}

func (e *ClarificationError) Error() string { return e.Prompt }

func Clarify(format string, args ...any) *ClarificationError {
	return &ClarificationError{Prompt: fmt.Sprintf(format, args...)}
}

type whenParser struct {
	w *when.Parser
}

// New builds a parser over English and common rules.
func New() Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &whenParser{w: w}
}

func (p *whenParser) Parse(phrase string, now time.Time) (time.Time, error) {
	result, err := p.w.Parse(phrase, now)
	if err != nil {
		return time.Time{}, Clarify("Couldn't read that time. Try something like: 4 tomorrow 2pm")
	}
	if result == nil {
		return time.Time{}, Clarify("When should that be? Try something like: 4 tue 2pm")
	}
	if !result.Time.After(now) {
		return time.Time{}, Clarify("That time is in the past. Try a future time like: 4 tomorrow 2pm")
	}
	return result.Time, nil
}
