package sms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DryRun stands in for the Twilio client when credentials are not
// configured. Sends are logged, never delivered.
type DryRun struct {
	logger *slog.Logger
}

func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{logger: logger}
}

func (d *DryRun) Send(_ context.Context, to, body string) (string, error) {
	id := "dry-" + uuid.NewString()
	d.logger.Info("dry-run send", "to", to, "body_len", len(body), "message_id", id)
	return id, nil
}
