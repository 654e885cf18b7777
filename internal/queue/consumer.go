// Package queue contains the background consumer that listens to the
// password reset queue and appends one line per message to a mail log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/auth"
)

// TokenDecoder reads a token's claims without checking its signature. The
// consumer only uses it to render the expiry; the token itself is verified
// when the user redeems it.
type TokenDecoder interface {
	Decode(raw string) (auth.Claims, error)
}

// ResetMailer turns PasswordResetRequested messages into mail log lines.
type ResetMailer struct {
	URL     string
	LogPath string
	Tokens  TokenDecoder
	Log     zerolog.Logger
}

// Run connects to the broker, consumes the reset queue and reconnects with
// exponential backoff until ctx is cancelled.
func (m *ResetMailer) Run(ctx context.Context) error {
	if m.URL == "" {
		return errors.New("reset-mailer: broker url is empty")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(m.URL)
		if err != nil {
			m.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("reset-mailer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = m.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.Log.Warn().Err(err).Msg("reset-mailer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (m *ResetMailer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		m.Log.Warn().Err(err).Msg("reset-mailer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(PasswordResetQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PasswordResetQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := m.deliver(d.Body); err != nil {
				m.Log.Error().Err(err).Msg("reset-mailer: handle message failed")
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (m *ResetMailer) deliver(body []byte) error {
	path := m.LogPath
	if path == "" {
		path = filepath.Join("logs", "password_reset.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return m.handleMessage(f, body)
}

// handleMessage renders one event as a single line on w.
func (m *ResetMailer) handleMessage(w io.Writer, body []byte) error {
	var ev PasswordResetRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserID == 0 || ev.Email == "" || ev.ResetToken == "" {
		return errors.New("incomplete password reset event")
	}

	expires := "unknown"
	if m.Tokens != nil {
		if claims, err := m.Tokens.Decode(ev.ResetToken); err == nil && claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
		}
	}

	line := fmt.Sprintf("[%s] Password reset requested | user_id=%d | to=%q | username=%q | expires=%s | token=%s\n",
		ev.RequestedAt, ev.UserID, ev.Email, ev.Username, expires, ev.ResetToken)
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
