// Package queue defines message payloads exchanged over the message broker.
package queue

// PasswordResetQueue is the durable queue carrying PasswordResetRequested.
const PasswordResetQueue = "password.reset.requested"

// PasswordResetRequested is published when a user asks for a password reset.
// It carries everything the mailer needs to deliver the token without
// querying the primary database.
type PasswordResetRequested struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	ResetToken  string `json:"reset_token"`
	RequestedAt string `json:"requested_at"` // RFC 3339, UTC
}
