package insight

import (
	"regexp"
	"strings"
	"time"
)

// namePattern matches self-introductions like "my name is Maria" or
// "this is Maria". The phrase is case-insensitive but the captured name
// must be a capitalized word.
var namePattern = regexp.MustCompile(`(?:(?i:my name is|name is|i'm|i am|this is))\s+([A-Z][a-zA-Z]*)`)

// businessCategories is scanned in declaration order; the first category
// found anywhere in the call text wins, regardless of where it appears.
var businessCategories = []string{
	"barbershop",
	"salon",
	"restaurant",
	"med spa",
	"clinic",
	"gym",
	"shop",
	"store",
}

type painPointRule struct {
	keyword string
	label   string
}

// painPointRules maps transcript keywords to pain-point labels. Iteration
// order is declaration order, which fixes the order of the resulting labels.
var painPointRules = []painPointRule{
	{"no-show", "appointment no-shows"},
	{"no show", "appointment no-shows"},
	{"cancel", "cancellations"},
	{"missed call", "missed calls"},
	{"after hours", "after-hours calls"},
	{"voicemail", "missed calls"},
	{"appointment", "appointment scheduling"},
	{"booking", "appointment scheduling"},
	{"schedul", "appointment scheduling"},
	{"double-book", "double bookings"},
	{"overwhelmed", "front-desk overload"},
	{"front desk", "front-desk overload"},
}

// Extract derives a CallInsight from a raw call event. It is total: every
// field degrades to its zero value when the event lacks the data, and no
// input can make it fail.
func Extract(evt CallEvent) CallInsight {
	text := callText(evt)

	return CallInsight{
		CallID:           evt.ID,
		Phone:            phoneNumber(evt),
		Name:             callerName(evt.Transcript),
		BusinessCategory: businessCategory(text),
		PainPoints:       painPoints(text),
		DurationSeconds:  durationSeconds(evt.StartedAt, evt.EndedAt),
		Transcript:       evt.Transcript,
		ExtractedAt:      time.Now().UTC(),
	}
}

// phoneNumber prefers the top-level customer number and falls back to the
// nested call customer used by start-of-call events.
func phoneNumber(evt CallEvent) string {
	if evt.Customer.Number != "" {
		return evt.Customer.Number
	}
	return evt.Call.Customer.Number
}

func callerName(transcript string) string {
	m := namePattern.FindStringSubmatch(transcript)
	if m == nil {
		return ""
	}
	return m[1]
}

func businessCategory(text string) string {
	for _, cat := range businessCategories {
		if strings.Contains(text, cat) {
			return cat
		}
	}
	return ""
}

func painPoints(text string) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, rule := range painPointRules {
		if !strings.Contains(text, rule.keyword) {
			continue
		}
		if seen[rule.label] {
			continue
		}
		seen[rule.label] = true
		labels = append(labels, rule.label)
	}
	return labels
}

// durationSeconds computes the call length from the event timestamps.
// Malformed or missing timestamps yield 0, never an error.
func durationSeconds(startedAt, endedAt string) int {
	start, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.RFC3339, endedAt)
	if err != nil {
		return 0
	}
	secs := int(end.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// callText lowercases the transcript plus all user turns for keyword
// scanning. User turns are joined by single spaces in original order.
func callText(evt CallEvent) string {
	var parts []string
	if evt.Transcript != "" {
		parts = append(parts, evt.Transcript)
	}
	if user := userText(evt.Messages); user != "" {
		parts = append(parts, user)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func userText(turns []Turn) string {
	var user []string
	for _, t := range turns {
		if t.Role == "user" {
			user = append(user, t.Message)
		}
	}
	return strings.Join(user, " ")
}
