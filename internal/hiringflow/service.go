package hiringflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// FlowStore persists workflow records.
//
// ApplyDecision must be a single atomic conditional update: it sets
// current_step to next and records entry under role only when the row is
// still at expected and role has no prior entry. It returns ErrNotFound,
// *StageMismatchError, or *AlreadyDecidedError when the guard fails.
type FlowStore interface {
	Create(ctx context.Context, rec *FlowRecord) error
	Get(ctx context.Context, candidateID string) (*FlowRecord, error)
	ApplyDecision(ctx context.Context, candidateID string, expected, next Step, role Role, entry ApprovalEntry) (*FlowRecord, error)
	// SetStep advances current_step from expected to next with no approval
	// entry (used when a verification request is issued).
	SetStep(ctx context.Context, candidateID string, expected, next Step) (*FlowRecord, error)
}

// TokenStore persists approval tokens.
//
// Redeem must atomically flip used from false to true and return the token,
// failing with ErrTokenInvalid when the token is missing, already used, or
// expired at now. Two concurrent redemptions of the same token must never
// both succeed.
type TokenStore interface {
	Mint(ctx context.Context, t *Token) error
	Redeem(ctx context.Context, token string, now time.Time) (*Token, error)
	// Lookup resolves a token without consuming it (read-only display paths).
	Lookup(ctx context.Context, token string) (*Token, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Notifier mints the next token and delivers the approval request email.
// Called after the transition has been durably persisted; failures are
// logged by the Service and never roll back the transition.
type Notifier interface {
	NotifyNextApprover(ctx context.Context, rec *FlowRecord, role Role, recipient string) error
}

// EventPublisher fans decision events out to downstream consumers (SSE,
// dashboards). Publish failures are non-fatal.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// eventDecisionRecorded is the Redis channel decision events are published on.
const eventDecisionRecorded = "EVENT_DECISION_RECORDED"

// Service encapsulates all hiring-flow business logic.
type Service struct {
	flows    FlowStore
	tokens   TokenStore
	notifier Notifier
	events   EventPublisher
	now      func() time.Time
}

// NewService returns a configured Service. notifier and events may be nil,
// in which case dispatch and event publication are skipped.
func NewService(flows FlowStore, tokens TokenStore, notifier Notifier, events EventPublisher) *Service {
	return &Service{
		flows:    flows,
		tokens:   tokens,
		notifier: notifier,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DecisionResult is returned to the caller after a decision is recorded.
type DecisionResult struct {
	Candidate string
	Decision  Decision
	NextStep  Step
}

// StartFlow creates a workflow record at Selected for Hiring. The hiring
// manager 1 and approver 1 contacts are the mandatory path; HM2 and
// approver 2 are optional and absent emails route around those stages.
func (s *Service) StartFlow(ctx context.Context, rec *FlowRecord) (*FlowRecord, error) {
	switch {
	case rec.CandidateID == "":
		return nil, &ValidationError{Msg: "candidate_id is required"}
	case rec.Name == "":
		return nil, &ValidationError{Msg: "name is required"}
	case rec.Position == "":
		return nil, &ValidationError{Msg: "position is required"}
	case rec.HiringManager1Email == "":
		return nil, &ValidationError{Msg: "hiring_manager1_email is required"}
	case rec.Approver1Email == "":
		return nil, &ValidationError{Msg: "approver1_email is required"}
	}

	now := s.now()
	rec.CurrentStep = StepSelectedForHiring
	rec.Approvals = Approvals{}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.AssessmentStatus == "" {
		rec.AssessmentStatus = "Pending"
	}
	if rec.BackgroundCheckStatus == "" {
		rec.BackgroundCheckStatus = "Pending"
	}

	if err := s.flows.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RequestVerification moves a pre-verification workflow to Ready for
// Verification and dispatches the salary-verification email to the verifier.
// The step change is persisted before delivery is attempted; a delivery
// failure is logged and does not fail the request.
func (s *Service) RequestVerification(ctx context.Context, candidateID string) (*FlowRecord, error) {
	rec, err := s.flows.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if rec.VerifierEmail == "" {
		return nil, &ValidationError{Msg: "verifier_email is not set on this hiring flow"}
	}
	if !BeforeVerification(rec.CurrentStep) {
		return nil, &StageMismatchError{Role: RoleVerifier, Expected: StepSalaryPackagePrepared, Current: rec.CurrentStep}
	}

	updated, err := s.flows.SetStep(ctx, candidateID, rec.CurrentStep, StepReadyForVerification)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, updated, RoleVerifier, updated.VerifierEmail)
	return updated, nil
}

// ApplyDecision redeems a token and applies the bound role's decision.
//
// expectRoles restricts which roles the calling endpoint serves; a token
// bound to any other role is consumed and rejected as invalid (fail closed —
// the redemption and the decision are one logical unit, and a half-redeemed
// token must never be retryable).
func (s *Service) ApplyDecision(ctx context.Context, token string, decision Decision, comment string, expectRoles ...Role) (*DecisionResult, error) {
	now := s.now()

	tok, err := s.tokens.Redeem(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if len(expectRoles) > 0 && !roleIn(tok.Role, expectRoles) {
		return nil, ErrTokenInvalid
	}

	rec, err := s.flows.Get(ctx, tok.CandidateID)
	if err != nil {
		return nil, err
	}

	next, err := Next(rec.CurrentStep, tok.Role, decision, rec.Routing())
	if err != nil {
		return nil, err
	}

	entry := ApprovalEntry{
		Decision:  decision,
		Comment:   comment,
		Timestamp: now,
		Email:     tok.ApproverEmail,
	}
	updated, err := s.flows.ApplyDecision(ctx, tok.CandidateID, rec.CurrentStep, next, tok.Role, entry)
	if err != nil {
		return nil, err
	}

	s.publishDecision(ctx, updated, tok.Role, decision)

	// Advanced to a stage with a pending approver: mint and send the next
	// request. Negative decisions leave the step unchanged and notify no one.
	if next != rec.CurrentStep {
		if role, email, ok := updated.NextActor(updated.CurrentStep); ok {
			s.dispatch(ctx, updated, role, email)
		}
	}

	return &DecisionResult{Candidate: updated.Name, Decision: decision, NextStep: updated.CurrentStep}, nil
}

// ApplySalaryDecision records the salary verifier's decision. Unlike the
// token-gated endpoints this path is addressed by candidate directly; step is
// the client-reported verification step, stored verbatim in the log entry.
// Request-change and reject decisions require a comment.
func (s *Service) ApplySalaryDecision(ctx context.Context, candidateID, step string, decision Decision, comment string) (*DecisionResult, error) {
	if decision != DecisionApproved && comment == "" {
		return nil, &ValidationError{Msg: "comment is required when requesting changes or rejecting"}
	}

	rec, err := s.flows.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	next, err := Next(rec.CurrentStep, RoleSalaryVerification, decision, rec.Routing())
	if err != nil {
		return nil, err
	}

	entry := ApprovalEntry{
		Decision:  decision,
		Comment:   comment,
		Timestamp: s.now(),
		Email:     rec.VerifierEmail,
		Step:      step,
	}
	updated, err := s.flows.ApplyDecision(ctx, candidateID, rec.CurrentStep, next, RoleSalaryVerification, entry)
	if err != nil {
		return nil, err
	}

	s.publishDecision(ctx, updated, RoleSalaryVerification, decision)

	return &DecisionResult{Candidate: updated.Name, Decision: decision, NextStep: updated.CurrentStep}, nil
}

// VerificationData resolves a workflow by candidate ID or by an unexpired
// token (without consuming it) and builds the read-only verification
// projection.
func (s *Service) VerificationData(ctx context.Context, candidateID, token string) (*VerificationData, error) {
	if candidateID == "" {
		if token == "" {
			return nil, &ValidationError{Msg: "candidate_id or token is required"}
		}
		tok, err := s.tokens.Lookup(ctx, token)
		if err != nil {
			return nil, err
		}
		candidateID = tok.CandidateID
	}

	rec, err := s.flows.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	return &VerificationData{
		CandidateID: rec.CandidateID,
		Candidate: VerificationCandidate{
			Name:            rec.Name,
			Position:        rec.Position,
			YearsExperience: rec.SalaryProposal.YearsOfExperience,
		},
		SalaryProposal: AnalyzeSalary(rec.SalaryProposal),
		Assessment: VerificationStatus{
			Status: rec.AssessmentStatus,
			Score:  rec.AssessmentScore,
		},
		BackgroundCheck: VerificationStatus{Status: rec.BackgroundCheckStatus},
		Meta:            VerificationMeta{RecruiterName: recruiterOrDefault(rec.Recruiter)},
	}, nil
}

// VerificationData is the projection served to the salary-verification page.
type VerificationData struct {
	CandidateID     string                `json:"candidate_id"`
	Candidate       VerificationCandidate `json:"candidate"`
	SalaryProposal  SalaryAnalysis        `json:"salary_proposal"`
	Assessment      VerificationStatus    `json:"assessment"`
	BackgroundCheck VerificationStatus    `json:"background_check"`
	Meta            VerificationMeta      `json:"meta"`
}

type VerificationCandidate struct {
	Name            string `json:"name"`
	Position        string `json:"position"`
	YearsExperience int    `json:"years_experience"`
}

type VerificationStatus struct {
	Status string `json:"status"`
	Score  string `json:"score,omitempty"`
}

type VerificationMeta struct {
	RecruiterName string `json:"recruiter_name"`
}

func recruiterOrDefault(name string) string {
	if name == "" {
		return "Recruitment Team"
	}
	return name
}

// dispatch asks the notifier to mint a token and email the next approver.
// Best effort: the transition is already committed, so failures are logged
// and never surfaced to the caller.
func (s *Service) dispatch(ctx context.Context, rec *FlowRecord, role Role, recipient string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyNextApprover(ctx, rec, role, recipient); err != nil {
		slog.Warn("approval request dispatch failed",
			"candidateId", rec.CandidateID, "role", string(role), "err", err)
	}
}

// publishDecision emits the decision event for SSE/dashboard consumers
// (non-fatal).
func (s *Service) publishDecision(ctx context.Context, rec *FlowRecord, role Role, decision Decision) {
	if s.events == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"type":        eventDecisionRecorded,
		"candidateId": rec.CandidateID,
		"role":        string(role),
		"decision":    string(decision),
		"currentStep": string(rec.CurrentStep),
	})
	if err := s.events.Publish(ctx, eventDecisionRecorded, payload); err != nil {
		slog.Warn("publish EVENT_DECISION_RECORDED failed", "err", err)
	}
}

func roleIn(role Role, set []Role) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
