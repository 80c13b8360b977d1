// Package compose renders the fixed SMS templates for each follow-up tier.
package compose

import (
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/callback/internal/insight"
)

// Tier names a follow-up delay class. The non-immediate values double as
// the key suffix in the scheduler, so "call-42" + TierOneHour keys as
// "call-42-1h".
type Tier string

const (
	TierImmediate Tier = "immediate"
	TierOneHour   Tier = "1h"
	TierOneDay    Tier = "24h"
)

// Delay returns the scheduling delay for the tier.
func (t Tier) Delay() time.Duration {
	switch t {
	case TierOneHour:
		return time.Hour
	case TierOneDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

const (
	schedulingLink  = "https://calendly.com/mikesquared/intro"
	operatorContact = "Call or text Mike directly at +1 (415) 555-0134."
	signature       = "— Mike² Agency"
)

// Compose renders the SMS body for a tier from a call insight. Pure and
// deterministic: the same tier and insight always produce the same text.
func Compose(tier Tier, ins insight.CallInsight) string {
	greet := greeting(ins.Name)
	focus := focusLine(ins)

	switch tier {
	case TierOneHour:
		return fmt.Sprintf("%s great speaking with you earlier. %s Grab a time that works for you: %s %s %s",
			greet, focus, schedulingLink, operatorContact, signature)
	case TierOneDay:
		return fmt.Sprintf("%s just checking back in after your call yesterday. %s The calendar is still open: %s %s %s",
			greet, focus, schedulingLink, operatorContact, signature)
	default:
		return fmt.Sprintf("%s thanks for calling! %s Book a free walkthrough here: %s %s",
			greet, focus, schedulingLink, signature)
	}
}

func greeting(name string) string {
	if name == "" {
		return "Hi there,"
	}
	return "Hi " + name + ","
}

// focusLine references the first pain point when one was extracted,
// otherwise falls back to the business type. The fallback is the literal
// word "business" when no category was detected.
func focusLine(ins insight.CallInsight) string {
	business := ins.BusinessCategory
	if business == "" {
		business = "business"
	}
	if len(ins.PainPoints) > 0 {
		return fmt.Sprintf("We help every %s we work with get a handle on %s.", business, ins.PainPoints[0])
	}
	return fmt.Sprintf("We help %s owners win back their time on the phones.", business)
}
