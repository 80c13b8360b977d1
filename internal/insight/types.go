package insight

import "time"

// CallEvent is the webhook payload shape posted by the voice platform.
// Only the fields the router and extractor care about are declared; the
// raw body is retained separately for the call-record sink.
type CallEvent struct {
	ID         string    `json:"id"`
	Message    EventMeta `json:"message"`
	Call       CallRef   `json:"call"`
	Customer   Customer  `json:"customer"`
	Transcript string    `json:"transcript"`
	Messages   []Turn    `json:"messages"`
	StartedAt  string    `json:"startedAt"`
	EndedAt    string    `json:"endedAt"`
}

type EventMeta struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type CallRef struct {
	Customer Customer `json:"customer"`
}

type Customer struct {
	Number string `json:"number"`
}

// Turn is a single message exchange within the call transcript.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// CallInsight is the structured summary derived from one call. Immutable
// once extracted; optional fields are empty strings when unavailable.
type CallInsight struct {
	CallID           string    `json:"call_id"`
	Phone            string    `json:"phone,omitempty"`
	Name             string    `json:"name,omitempty"`
	BusinessCategory string    `json:"business_category,omitempty"`
	PainPoints       []string  `json:"pain_points,omitempty"`
	DurationSeconds  int       `json:"duration_seconds"`
	Transcript       string    `json:"transcript"`
	ExtractedAt      time.Time `json:"extracted_at"`
}
