// Package processor routes webhook events from the voice platform into
// the extraction, composition and scheduling pipeline.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/callback/internal/bus"
	"github.com/MikeSquared-Agency/callback/internal/compose"
	"github.com/MikeSquared-Agency/callback/internal/dispatch"
	"github.com/MikeSquared-Agency/callback/internal/insight"
	"github.com/MikeSquared-Agency/callback/internal/record"
	"github.com/MikeSquared-Agency/callback/internal/schedule"
)

// Pre-send delays for the untracked one-off messages.
const (
	calendarLinkDelay = 2 * time.Second
	thankYouDelay     = 2 * time.Second
	operatorPingDelay = time.Second
)

// Result is the acknowledgement returned to the webhook caller.
type Result struct {
	Status    string   `json:"status"`
	CallID    string   `json:"call_id,omitempty"`
	FollowUps []string `json:"follow_ups,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

type Processor struct {
	sched      *schedule.Scheduler
	dispatcher *dispatch.Dispatcher
	records    *record.Store
	bus        *bus.Client
	logger     *slog.Logger

	operatorPhone string
	calendarLink  string

	// overridable in tests so one-offs resolve quickly
	calendarDelay time.Duration
	thanksDelay   time.Duration
	notifyDelay   time.Duration
}

// New creates the event router. records and b may be nil; the record sink
// and lifecycle signals are then skipped.
func New(sched *schedule.Scheduler, d *dispatch.Dispatcher, records *record.Store, b *bus.Client, operatorPhone, calendarLink string, logger *slog.Logger) *Processor {
	return &Processor{
		sched:         sched,
		dispatcher:    d,
		records:       records,
		bus:           b,
		logger:        logger,
		operatorPhone: operatorPhone,
		calendarLink:  calendarLink,
		calendarDelay: calendarLinkDelay,
		thanksDelay:   thankYouDelay,
		notifyDelay:   operatorPingDelay,
	}
}

// HandleEvent classifies one webhook payload and runs the matching path.
// Unknown event types are acknowledged and ignored. A returned error means
// the payload could not be processed; the caller reports it and keeps
// serving.
func (p *Processor) HandleEvent(ctx context.Context, body []byte) (*Result, error) {
	var evt insight.CallEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}

	if p.records != nil {
		if err := p.records.Record(ctx, evt.ID, body); err != nil {
			p.logger.Warn("call record write failed", "call_id", evt.ID, "error", err)
		}
	}

	switch {
	case evt.Message.Type == "status-update" && evt.Message.Status == "in-progress":
		return p.handleCallStart(evt), nil
	case evt.Message.Type == "end-of-call-report" || evt.EndedAt != "":
		return p.handleCallEnd(evt), nil
	default:
		p.logger.Debug("ignoring event", "type", evt.Message.Type, "call_id", evt.ID)
		return &Result{Status: "ignored", CallID: evt.ID}, nil
	}
}

// handleCallStart fires the one-off calendar-link SMS to the caller. This
// path bypasses the scheduler: the send is untracked and never retried.
func (p *Processor) handleCallStart(evt insight.CallEvent) *Result {
	number := evt.Call.Customer.Number
	if number == "" {
		return &Result{Status: "ignored", CallID: evt.ID, Reason: "no caller number"}
	}

	body := fmt.Sprintf("Thanks for calling Mike² Agency! Grab a time that works for you: %s", p.calendarLink)
	p.dispatcher.FireOnce(p.calendarDelay, number, body, "calendar-link")

	p.publish(bus.SubjectCallStarted, map[string]any{"call_id": evt.ID})
	p.logger.Info("call started", "call_id", evt.ID)
	return &Result{Status: "calendar_link_queued", CallID: evt.ID}
}

// handleCallEnd runs extract → compose → enqueue for the delayed tiers,
// fires the immediate thank-you to the caller, and pings the operator.
func (p *Processor) handleCallEnd(evt insight.CallEvent) *Result {
	ins := insight.Extract(evt)
	p.logger.Info("call ended",
		"call_id", ins.CallID,
		"name", ins.Name,
		"category", ins.BusinessCategory,
		"pain_points", len(ins.PainPoints),
		"duration_s", ins.DurationSeconds,
	)

	p.publish(bus.SubjectCallEnded, map[string]any{
		"call_id":  ins.CallID,
		"category": ins.BusinessCategory,
		"duration": ins.DurationSeconds,
	})

	res := &Result{CallID: ins.CallID}
	if ins.Phone == "" {
		res.Status = "no_followup"
		res.Reason = "no phone number extracted"
	} else {
		for _, tier := range []compose.Tier{compose.TierOneHour, compose.TierOneDay} {
			body := compose.Compose(tier, ins)
			key := p.sched.Enqueue(ins.CallID, string(tier), ins.Phone, body, tier.Delay())
			res.FollowUps = append(res.FollowUps, key)
			p.publish(bus.SubjectFollowUpScheduled, map[string]any{
				"key":     key,
				"call_id": ins.CallID,
				"tier":    string(tier),
			})
		}

		p.dispatcher.FireOnce(p.thanksDelay, ins.Phone, compose.Compose(compose.TierImmediate, ins), "thank-you")
		res.Status = "scheduled"
	}

	if p.operatorPhone != "" {
		p.dispatcher.FireOnce(p.notifyDelay, p.operatorPhone, operatorSummary(ins), "operator-ping")
	}

	return res
}

func (p *Processor) publish(subject string, data map[string]any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish signal", "subject", subject, "error", err)
	}
}

// operatorSummary formats the insight into the internal notification text.
func operatorSummary(ins insight.CallInsight) string {
	var sb strings.Builder

	name := ins.Name
	if name == "" {
		name = "Unknown caller"
	}
	phone := ins.Phone
	if phone == "" {
		phone = "no number"
	}
	category := ins.BusinessCategory
	if category == "" {
		category = "unknown business"
	}

	fmt.Fprintf(&sb, "New call: %s (%s) — %s.", name, phone, category)
	if len(ins.PainPoints) > 0 {
		fmt.Fprintf(&sb, " Pain points: %s.", strings.Join(ins.PainPoints, ", "))
	}
	if ins.DurationSeconds > 0 {
		fmt.Fprintf(&sb, " Duration: %ds.", ins.DurationSeconds)
	}
	return sb.String()
}
