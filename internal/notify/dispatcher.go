// Package notify implements the approval request dispatcher: it mints
// single-use tokens, composes the outbound email, and delivers it.
//
// Token state is durably persisted before delivery is attempted, and a
// delivery failure never rolls back the stage transition that triggered the
// notification.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"talentflow/approval-service/internal/hiringflow"
)

// Email is a composed outbound message.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a composed email to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, msg Email) error
}

// Dispatcher mints tokens and sends approval/verification request emails.
type Dispatcher struct {
	tokens  hiringflow.TokenStore
	sender  Sender
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewDispatcher returns a Dispatcher. baseURL is the front-end origin used
// to build response-page links; ttl bounds the minted tokens' lifetime.
func NewDispatcher(tokens hiringflow.TokenStore, sender Sender, baseURL string, ttl time.Duration) *Dispatcher {
	return &Dispatcher{
		tokens:  tokens,
		sender:  sender,
		baseURL: baseURL,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NotifyNextApprover mints a token binding (workflow, role) and emails the
// response link to recipient. The token insert must succeed before any
// delivery is attempted; a send failure is returned to the caller for
// logging but the token stays valid, so the link can be re-sent out of band.
func (d *Dispatcher) NotifyNextApprover(ctx context.Context, rec *hiringflow.FlowRecord, role hiringflow.Role, recipient string) error {
	now := d.now()
	tok := &hiringflow.Token{
		Token:         NewToken(),
		CandidateID:   rec.CandidateID,
		Role:          role,
		ApproverEmail: recipient,
		ExpiresAt:     now.Add(d.ttl),
		CreatedAt:     now,
	}
	if err := d.tokens.Mint(ctx, tok); err != nil {
		return fmt.Errorf("mint %s token: %w", role, err)
	}

	var msg Email
	if role == hiringflow.RoleVerifier {
		msg = VerificationRequestEmail(rec, d.baseURL+"/verify?token="+tok.Token)
	} else {
		msg = ApprovalRequestEmail(rec, role, d.baseURL+"/approve?token="+tok.Token)
	}

	if err := d.sender.Send(ctx, recipient, msg); err != nil {
		return fmt.Errorf("send %s request to %s: %w", role, recipient, err)
	}
	return nil
}

// NewToken returns an opaque token string. Two concatenated UUIDs, matching
// the width the tokens have always had.
func NewToken() string {
	return uuid.NewString() + "-" + uuid.NewString()
}
