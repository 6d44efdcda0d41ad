package sms

import (
	"fmt"
	"strings"
	"time"
)

// Message bodies stay under one SMS segment (~160 chars), so templates
// are short and interpolate only name, time and phone.

const maxBodyLen = 160

func clamp(s string) string {
	r := []rune(s)
	if len(r) <= maxBodyLen {
		return s
	}
	return string(r[:maxBodyLen-3]) + "..."
}

func MarkedStatus(customerName, statusWord string) string {
	return clamp(fmt.Sprintf("✓ %s marked %s", customerName, strings.ToUpper(statusWord)))
}

func NoteAdded(customerName string) string {
	return clamp(fmt.Sprintf("✓ Note added for %s", customerName))
}

func BookingConfirmed(customerName string, at time.Time) string {
	return clamp(fmt.Sprintf("✓ %s booked for %s", customerName, at.Format("Mon Jan 2 3:04PM")))
}

func JobStatus(customerName, statusWord string) string {
	return clamp(fmt.Sprintf("✓ Job for %s is now %s", customerName, strings.ToUpper(statusWord)))
}

func JobCancelled(customerName string) string {
	return clamp(fmt.Sprintf("✓ Job for %s cancelled", customerName))
}

func CannotCancel(customerName string) string {
	return clamp(fmt.Sprintf("✗ Job for %s is already complete and cannot be cancelled", customerName))
}

func CannotTransition(customerName, current, target string) string {
	statusWord := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(s, "_", " "))
	}
	return clamp(fmt.Sprintf("✗ Job for %s is %s and cannot be marked %s", customerName, statusWord(current), statusWord(target)))
}

// NoContext is the guidance reply when a command needs a target record
// but none was resolvable for the sender.
func NoContext() string {
	return "No active lead or job found for this number. Reply HELP for commands."
}

func ClarifyTime(prompt string) string {
	return clamp(prompt)
}

func ClarifyNote() string {
	return "To add a note, reply: 3 <your note>"
}

func OptInConfirmed() string {
	return "You are resubscribed to notifications. Reply STOP to unsubscribe."
}

func Help() string {
	return "Reply: 1 contacted, 2 thinking, 3 <note>, 4 <time> to book, 5 closed, Y confirm, DONE/OMW/HERE job status, STOP to unsubscribe"
}

func NoteLabel() string {
	return "Contacted via phone"
}
