// Package analytics joins the two stores on completion events and forwards a
// denormalized, decrypted record to the downstream analytics pipeline. It is
// strictly read-only on both stores.
package analytics

import (
	"context"
	"log/slog"

	"civic/internal/decision"
)

// Person is the decrypted PII projection forwarded downstream.
type Person struct {
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// Record is the denormalized analytics record: the decision outcome joined
// with the decrypted personal data for one id.
type Record struct {
	ID       string          `json:"id"`
	Decision decision.Record `json:"decision"`
	Person   Person          `json:"person"`
}

// Pipeline is the external analytics collaborator. Forwarding is fire-and-
// forget from the caller's perspective: failures are logged, never retried.
type Pipeline interface {
	Forward(ctx context.Context, rec Record) error
}

// LogPipeline writes forwarded records to the structured log. It is the
// default sink for local development and tests.
type LogPipeline struct {
	logger *slog.Logger
}

func NewLogPipeline(logger *slog.Logger) *LogPipeline {
	return &LogPipeline{logger: logger}
}

func (p *LogPipeline) Forward(ctx context.Context, rec Record) error {
	p.logger.InfoContext(ctx, "analytics record forwarded",
		"id", rec.ID,
		"status", rec.Decision.Status.String(),
		"decision", int(rec.Decision.Decision),
		"username", rec.Person.Username,
	)
	return nil
}
