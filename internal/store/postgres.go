// Package store provides the persistence implementations of the hiringflow
// store interfaces: PostgreSQL for production and an in-memory variant for
// tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"talentflow/approval-service/internal/hiringflow"
)

// PostgresFlowStore persists workflow records in the hiring_flows table.
// Approvals and the salary proposal live in jsonb columns; every mutation is
// a single conditional UPDATE ... RETURNING so concurrent writers can never
// interleave a stale read-modify-write.
type PostgresFlowStore struct {
	pool *pgxpool.Pool
}

// NewPostgresFlowStore returns a flow store backed by pool.
func NewPostgresFlowStore(pool *pgxpool.Pool) *PostgresFlowStore {
	return &PostgresFlowStore{pool: pool}
}

const flowColumns = `candidate_id, name, position, recruiter, recruiter_email,
       current_step, assessment_status, assessment_score, background_check_status,
       approvals, salary_proposal,
       verifier_email, hiring_manager1_email, hiring_manager2_email,
       approver1_email, approver2_email, created_at, updated_at`

// Create inserts a new workflow record. A duplicate candidate_id is a
// validation failure: one active record per candidate.
func (s *PostgresFlowStore) Create(ctx context.Context, rec *hiringflow.FlowRecord) error {
	approvals, err := json.Marshal(rec.Approvals)
	if err != nil {
		return fmt.Errorf("marshal approvals: %w", err)
	}
	proposal, err := json.Marshal(rec.SalaryProposal)
	if err != nil {
		return fmt.Errorf("marshal salary proposal: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO hiring_flows (
		   candidate_id, name, position, recruiter, recruiter_email,
		   current_step, assessment_status, assessment_score, background_check_status,
		   approvals, salary_proposal,
		   verifier_email, hiring_manager1_email, hiring_manager2_email,
		   approver1_email, approver2_email, created_at, updated_at
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		rec.CandidateID, rec.Name, rec.Position, rec.Recruiter, rec.RecruiterEmail,
		string(rec.CurrentStep), rec.AssessmentStatus, rec.AssessmentScore, rec.BackgroundCheckStatus,
		approvals, proposal,
		rec.VerifierEmail, rec.HiringManager1Email, rec.HiringManager2Email,
		rec.Approver1Email, rec.Approver2Email, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &hiringflow.ValidationError{Msg: "a hiring flow already exists for this candidate"}
		}
		return fmt.Errorf("create hiring flow: %w", err)
	}
	return nil
}

// Get returns the workflow record for candidateID.
func (s *PostgresFlowStore) Get(ctx context.Context, candidateID string) (*hiringflow.FlowRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+flowColumns+` FROM hiring_flows WHERE candidate_id = $1`, candidateID)
	rec, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hiringflow.ErrNotFound
		}
		return nil, fmt.Errorf("get hiring flow: %w", err)
	}
	return rec, nil
}

// ApplyDecision advances current_step and records the decision under role in
// one statement. The WHERE clause carries both guards: the row must still be
// at expected, and role must not have decided yet (`NOT approvals ? role`).
// Zero rows updated means one of the guards failed; a follow-up read
// classifies which.
func (s *PostgresFlowStore) ApplyDecision(ctx context.Context, candidateID string, expected, next hiringflow.Step, role hiringflow.Role, entry hiringflow.ApprovalEntry) (*hiringflow.FlowRecord, error) {
	patch, err := json.Marshal(map[hiringflow.Role]hiringflow.ApprovalEntry{role: entry})
	if err != nil {
		return nil, fmt.Errorf("marshal approval entry: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE hiring_flows
		 SET current_step = $1,
		     approvals    = approvals || $2::jsonb,
		     updated_at   = NOW()
		 WHERE candidate_id = $3
		   AND current_step = $4
		   AND NOT approvals ? $5
		 RETURNING `+flowColumns,
		string(next), patch, candidateID, string(expected), string(role),
	)
	rec, err := scanFlow(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("apply decision: %w", err)
	}
	return nil, s.classifyGuardFailure(ctx, candidateID, expected, role)
}

// SetStep advances current_step with no approval entry.
func (s *PostgresFlowStore) SetStep(ctx context.Context, candidateID string, expected, next hiringflow.Step) (*hiringflow.FlowRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE hiring_flows
		 SET current_step = $1, updated_at = NOW()
		 WHERE candidate_id = $2 AND current_step = $3
		 RETURNING `+flowColumns,
		string(next), candidateID, string(expected),
	)
	rec, err := scanFlow(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("set step: %w", err)
	}

	cur, getErr := s.Get(ctx, candidateID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &hiringflow.StageMismatchError{Expected: expected, Current: cur.CurrentStep}
}

// classifyGuardFailure re-reads the row to turn a zero-row conditional update
// into the right domain error.
func (s *PostgresFlowStore) classifyGuardFailure(ctx context.Context, candidateID string, expected hiringflow.Step, role hiringflow.Role) error {
	cur, err := s.Get(ctx, candidateID)
	if err != nil {
		return err
	}
	if cur.Approvals.Get(role) != nil {
		return &hiringflow.AlreadyDecidedError{Role: role}
	}
	return &hiringflow.StageMismatchError{Role: role, Expected: expected, Current: cur.CurrentStep}
}

func scanFlow(row pgx.Row) (*hiringflow.FlowRecord, error) {
	var rec hiringflow.FlowRecord
	var step string
	var approvals, proposal []byte
	err := row.Scan(
		&rec.CandidateID, &rec.Name, &rec.Position, &rec.Recruiter, &rec.RecruiterEmail,
		&step, &rec.AssessmentStatus, &rec.AssessmentScore, &rec.BackgroundCheckStatus,
		&approvals, &proposal,
		&rec.VerifierEmail, &rec.HiringManager1Email, &rec.HiringManager2Email,
		&rec.Approver1Email, &rec.Approver2Email, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.CurrentStep = hiringflow.Step(step)
	if err := json.Unmarshal(approvals, &rec.Approvals); err != nil {
		return nil, fmt.Errorf("unmarshal approvals: %w", err)
	}
	if err := json.Unmarshal(proposal, &rec.SalaryProposal); err != nil {
		return nil, fmt.Errorf("unmarshal salary proposal: %w", err)
	}
	return &rec, nil
}

// PostgresTokenStore persists approval tokens in the approval_tokens table.
type PostgresTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTokenStore returns a token store backed by pool.
func NewPostgresTokenStore(pool *pgxpool.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

// Mint inserts a fresh unused token.
func (s *PostgresTokenStore) Mint(ctx context.Context, t *hiringflow.Token) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO approval_tokens (token, candidate_id, role, approver_email, used, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, false, $5, $6)`,
		t.Token, t.CandidateID, string(t.Role), t.ApproverEmail, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	return nil
}

// Redeem flips used from false to true in a single conditional update. Two
// concurrent redemptions race on the same row; the row lock guarantees
// exactly one sees used = false.
func (s *PostgresTokenStore) Redeem(ctx context.Context, token string, now time.Time) (*hiringflow.Token, error) {
	var t hiringflow.Token
	var role string
	err := s.pool.QueryRow(ctx,
		`UPDATE approval_tokens
		 SET used = true
		 WHERE token = $1 AND used = false AND expires_at > $2
		 RETURNING token, candidate_id, role, approver_email, used, expires_at, created_at`,
		token, now,
	).Scan(&t.Token, &t.CandidateID, &role, &t.ApproverEmail, &t.Used, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hiringflow.ErrTokenInvalid
		}
		return nil, fmt.Errorf("redeem token: %w", err)
	}
	t.Role = hiringflow.Role(role)
	return &t, nil
}

// Lookup resolves a token without consuming it. Used and expired tokens are
// still rejected — display paths must not leak workflows behind dead links.
func (s *PostgresTokenStore) Lookup(ctx context.Context, token string) (*hiringflow.Token, error) {
	var t hiringflow.Token
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT token, candidate_id, role, approver_email, used, expires_at, created_at
		 FROM approval_tokens
		 WHERE token = $1 AND used = false AND expires_at > NOW()`,
		token,
	).Scan(&t.Token, &t.CandidateID, &role, &t.ApproverEmail, &t.Used, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hiringflow.ErrTokenInvalid
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	t.Role = hiringflow.Role(role)
	return &t, nil
}

// DeleteExpiredBefore removes tokens whose expiry is before cutoff.
// Housekeeping only: validity is always enforced at redemption.
func (s *PostgresTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM approval_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
