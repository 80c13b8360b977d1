// Package dispatch drains due follow-ups on a periodic tick and owns the
// fire-and-forget one-off sends.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MikeSquared-Agency/callback/internal/bus"
	"github.com/MikeSquared-Agency/callback/internal/schedule"
)

// Sender is the outbound SMS capability. Implementations return a
// provider message ID on success.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Dispatcher polls the scheduler for due entries and pushes them through
// the sender. It never touches the scheduler's collection directly — all
// mutation goes back through scheduler methods.
type Dispatcher struct {
	sched  *schedule.Scheduler
	sender Sender
	bus    *bus.Client
	logger *slog.Logger
	grace  time.Duration
	cron   *cron.Cron
}

// New creates a dispatcher. bus may be nil; sent-signal publishing is then
// skipped. grace is how long a sent entry stays visible before eviction.
func New(sched *schedule.Scheduler, sender Sender, b *bus.Client, grace time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sched:  sched,
		sender: sender,
		bus:    b,
		logger: logger,
		grace:  grace,
	}
}

// Start begins the periodic tick. SkipIfStillRunning guarantees a tick
// never overlaps a slow predecessor, so no entry is sent twice
// concurrently.
func (d *Dispatcher) Start(interval time.Duration) error {
	cl := cronLogger{d.logger}
	d.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cl)))
	_, err := d.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		d.RunOnce(context.Background(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("schedule dispatch tick: %w", err)
	}
	d.cron.Start()
	d.logger.Info("dispatcher started", "interval", interval.String(), "grace", d.grace.String())
	return nil
}

// Stop halts the tick and waits for an in-flight run to finish.
func (d *Dispatcher) Stop() {
	if d.cron == nil {
		return
	}
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// RunOnce processes every entry due at now. Successful sends are marked
// sent and evicted after the grace window. Failed sends stay pending and
// are retried on the next tick.
//
// TODO: add a max-attempts cap with backoff. A destination that keeps
// rejecting currently retries every tick until the entry is evicted by hand.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) {
	due := d.sched.DueEntries(now)
	if len(due) == 0 {
		return
	}
	d.logger.Info("dispatching due follow-ups", "count", len(due))

	for _, entry := range due {
		msgID, err := d.sender.Send(ctx, entry.Destination, entry.Body)
		if err != nil {
			d.logger.Error("follow-up send failed — entry stays pending",
				"key", entry.Key,
				"error", err,
			)
			continue
		}

		d.sched.MarkSent(entry.Key)
		d.logger.Info("follow-up sent", "key", entry.Key, "message_id", msgID)

		if d.bus != nil {
			if err := d.bus.Publish(bus.SubjectFollowUpSent, map[string]any{
				"key":        entry.Key,
				"call_id":    entry.CallID,
				"tier":       entry.Tier,
				"message_id": msgID,
				"sent_at":    now.UTC().Format(time.RFC3339),
			}); err != nil {
				d.logger.Warn("failed to publish followup sent", "key", entry.Key, "error", err)
			}
		}

		key := entry.Key
		time.AfterFunc(d.grace, func() {
			d.sched.Evict(key)
		})
	}
}

// FireOnce spawns an untracked delayed send. The outcome is logged and
// never retried; the caller has usually already answered its HTTP request
// by the time the send resolves.
func (d *Dispatcher) FireOnce(delay time.Duration, to, body, label string) {
	go func() {
		time.Sleep(delay)
		msgID, err := d.sender.Send(context.Background(), to, body)
		if err != nil {
			d.logger.Error("one-off send failed", "label", label, "error", err)
			return
		}
		d.logger.Info("one-off sent", "label", label, "message_id", msgID)
	}()
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.logger.Error(msg, args...)
}
