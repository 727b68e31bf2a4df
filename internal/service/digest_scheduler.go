package service

import (
	"context"
	"time"

	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/pkg/mailer"

	"github.com/google/uuid"
)

// DigestScheduler fires the morning-digest push (and optional email) when a
// user's configured digest time arrives. It only considers sessions that are
// currently live; a user with no session has no pending working set to
// summarize.
type DigestScheduler struct {
	stream   *StreamService
	mailer   mailer.IEmailService
	delivery StreamDelivery
	logger   logger.ILogger
	interval time.Duration

	lastSent map[string]string // userID -> "2006-01-02" of last send
}

func NewDigestScheduler(stream *StreamService, mail mailer.IEmailService, delivery StreamDelivery, log logger.ILogger, interval time.Duration) *DigestScheduler {
	return &DigestScheduler{
		stream:   stream,
		mailer:   mail,
		delivery: delivery,
		logger:   log,
		interval: interval,
		lastSent: make(map[string]string),
	}
}

// Run checks every interval whether any live session's digest time has been
// reached today. At most one digest per user per day.
func (d *DigestScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx, time.Now())
		}
	}
}

func (d *DigestScheduler) tick(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")
	minute := now.Hour()*60 + now.Minute()

	for _, sess := range d.stream.sessions.Active() {
		prefs := d.stream.Taste(ctx, sess.UserID).Preference()
		if prefs.DigestTime == "" {
			continue
		}
		target, err := time.Parse("15:04", prefs.DigestTime)
		if err != nil {
			continue
		}
		if minute < target.Hour()*60+target.Minute() {
			continue
		}
		if d.lastSent[sess.UserID] == day {
			continue
		}
		d.lastSent[sess.UserID] = day

		d.send(ctx, sess.UserID, prefs.DigestEmail, now)
	}
}

func (d *DigestScheduler) send(ctx context.Context, userID, email string, now time.Time) {
	summary := d.stream.Digest(ctx, userID, now.Hour())
	if summary.TotalPending == 0 {
		return
	}

	if d.delivery != nil {
		if uid, err := uuid.Parse(userID); err == nil {
			d.delivery.Send(uid, "digest", summary)
		}
	}

	if email != "" && d.mailer != nil {
		if err := d.mailer.SendDigest(email, summary); err != nil {
			d.logger.Warn("DigestScheduler", "Digest email failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
	}

	d.logger.Info("DigestScheduler", "Digest delivered", map[string]interface{}{"user_id": userID, "pending": summary.TotalPending})
}
