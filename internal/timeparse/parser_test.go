package timeparse

import (
	"errors"
	"testing"
	"time"
)

func TestParseFuturePhrase(t *testing.T) {
	p := New()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) // a Monday

	got, err := p.Parse("tuesday 2pm", now)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !got.After(now) {
		t.Fatalf("expected future time, got %v", got)
	}
	if got.Weekday() != time.Tuesday {
		t.Fatalf("expected a Tuesday, got %v", got.Weekday())
	}
	if got.Hour() != 14 {
		t.Fatalf("expected 14:00, got hour %d", got.Hour())
	}
}

func TestParseUnreadablePhraseAsksForClarification(t *testing.T) {
	p := New()
	now := time.Now()

	_, err := p.Parse("whenever works", now)
	if err == nil {
		t.Fatal("expected an error for an unreadable phrase")
	}

	var clarify *ClarificationError
	if !errors.As(err, &clarify) {
		t.Fatalf("expected ClarificationError, got %T", err)
	}
	if clarify.Prompt == "" {
		t.Fatal("clarification prompt is empty")
	}
}

func TestParseRejectsPastTime(t *testing.T) {
	p := New()
	now := time.Date(2026, time.March, 2, 23, 30, 0, 0, time.UTC)

	_, err := p.Parse("today 9am", now)
	if err == nil {
		t.Fatal("expected past times to be rejected")
	}
	var clarify *ClarificationError
	if !errors.As(err, &clarify) {
		t.Fatalf("expected ClarificationError, got %T", err)
	}
}
