package hiringflow_test

import (
	"errors"
	"testing"

	"talentflow/approval-service/internal/hiringflow"
)

var bothReviewers = hiringflow.Routing{HasHM2: true, HasApprover2: true}
var noSecondReviewers = hiringflow.Routing{}

// ── Positive decisions advance per the transition table ────────────────────

func TestNext_PositiveDecisions(t *testing.T) {
	cases := []struct {
		role     hiringflow.Role
		decision hiringflow.Decision
		routing  hiringflow.Routing
		want     hiringflow.Step
	}{
		{hiringflow.RoleVerifier, hiringflow.DecisionApproved, bothReviewers, hiringflow.StepReadyForRecommendationHM1},
		{hiringflow.RoleHM1, hiringflow.DecisionRecommend, bothReviewers, hiringflow.StepReadyForRecommendationHM2},
		{hiringflow.RoleHM1, hiringflow.DecisionRecommend, noSecondReviewers, hiringflow.StepReadyForApprovalApprover1},
		{hiringflow.RoleHM2, hiringflow.DecisionRecommend, bothReviewers, hiringflow.StepReadyForApprovalApprover1},
		{hiringflow.RoleApprover1, hiringflow.DecisionApproved, bothReviewers, hiringflow.StepReadyForApprovalApprover2},
		{hiringflow.RoleApprover1, hiringflow.DecisionApproved, noSecondReviewers, hiringflow.StepReadyForContractIssuance},
		{hiringflow.RoleApprover2, hiringflow.DecisionApproved, bothReviewers, hiringflow.StepReadyForContractIssuance},
	}
	for _, c := range cases {
		current := hiringflow.ExpectedStep(c.role)
		got, err := hiringflow.Next(current, c.role, c.decision, c.routing)
		if err != nil {
			t.Errorf("Next(%s, %s) returned unexpected error: %v", c.role, c.decision, err)
			continue
		}
		if got != c.want {
			t.Errorf("Next(%s, %s) = %q, want %q", c.role, c.decision, got, c.want)
		}
	}
}

// ── Salary sub-flow outcomes ───────────────────────────────────────────────

func TestNext_SalaryVerificationOutcomes(t *testing.T) {
	cases := []struct {
		decision hiringflow.Decision
		want     hiringflow.Step
	}{
		{hiringflow.DecisionApproved, hiringflow.StepSalaryVerifiedAndApproved},
		{hiringflow.DecisionRequestChange, hiringflow.StepSalaryChangeRequested},
		{hiringflow.DecisionRejected, hiringflow.StepSalaryPackageRejected},
	}
	for _, c := range cases {
		got, err := hiringflow.Next(hiringflow.StepSalaryPackagePrepared,
			hiringflow.RoleSalaryVerification, c.decision, noSecondReviewers)
		if err != nil {
			t.Errorf("Next(salary_verification, %s) returned unexpected error: %v", c.decision, err)
			continue
		}
		if got != c.want {
			t.Errorf("Next(salary_verification, %s) = %q, want %q", c.decision, got, c.want)
		}
	}
}

// ── Negative decisions never advance the stage ─────────────────────────────

func TestNext_NegativeDecisionsFreezeWorkflow(t *testing.T) {
	cases := []struct {
		role     hiringflow.Role
		decision hiringflow.Decision
	}{
		{hiringflow.RoleVerifier, hiringflow.DecisionRejected},
		{hiringflow.RoleVerifier, hiringflow.DecisionRequestChange},
		{hiringflow.RoleHM1, hiringflow.DecisionDoNotRecommend},
		{hiringflow.RoleHM2, hiringflow.DecisionDoNotRecommend},
		{hiringflow.RoleApprover1, hiringflow.DecisionRejected},
		{hiringflow.RoleApprover2, hiringflow.DecisionRejected},
	}
	for _, c := range cases {
		current := hiringflow.ExpectedStep(c.role)
		got, err := hiringflow.Next(current, c.role, c.decision, bothReviewers)
		if err != nil {
			t.Errorf("Next(%s, %s) returned unexpected error: %v", c.role, c.decision, err)
			continue
		}
		if got != current {
			t.Errorf("Next(%s, %s) = %q, want unchanged %q", c.role, c.decision, got, current)
		}
	}
}

// ── Optional reviewer routing ──────────────────────────────────────────────

func TestNext_SkipsHM2WhenAbsent(t *testing.T) {
	got, err := hiringflow.Next(hiringflow.StepReadyForRecommendationHM1,
		hiringflow.RoleHM1, hiringflow.DecisionRecommend,
		hiringflow.Routing{HasHM2: false, HasApprover2: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != hiringflow.StepReadyForApprovalApprover1 {
		t.Errorf("hm1 Recommend without HM2 = %q, want %q — must never visit the HM2 stage",
			got, hiringflow.StepReadyForApprovalApprover1)
	}
}

func TestNext_VisitsApprover2WhenPresent(t *testing.T) {
	got, err := hiringflow.Next(hiringflow.StepReadyForApprovalApprover1,
		hiringflow.RoleApprover1, hiringflow.DecisionApproved,
		hiringflow.Routing{HasApprover2: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != hiringflow.StepReadyForApprovalApprover2 {
		t.Errorf("approver1 Approved with approver2 present = %q, want %q", got,
			hiringflow.StepReadyForApprovalApprover2)
	}
}

// ── Out-of-order decisions are rejected ────────────────────────────────────

func TestNext_StageMismatch(t *testing.T) {
	cases := []struct {
		current hiringflow.Step
		role    hiringflow.Role
	}{
		// approver-1 decision arriving while the workflow is still at HM1
		{hiringflow.StepReadyForRecommendationHM1, hiringflow.RoleApprover1},
		// verifier decision after verification already passed
		{hiringflow.StepReadyForRecommendationHM1, hiringflow.RoleVerifier},
		// hm1 decision on a freshly created flow
		{hiringflow.StepSelectedForHiring, hiringflow.RoleHM1},
		// salary decision after the sub-flow already resolved
		{hiringflow.StepSalaryVerifiedAndApproved, hiringflow.RoleSalaryVerification},
	}
	for _, c := range cases {
		d := hiringflow.DecisionApproved
		if c.role == hiringflow.RoleHM1 {
			d = hiringflow.DecisionRecommend
		}
		_, err := hiringflow.Next(c.current, c.role, d, bothReviewers)
		var mismatch *hiringflow.StageMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("Next(%q, %s) error = %v, want StageMismatchError", c.current, c.role, err)
			continue
		}
		if mismatch.Current != c.current || mismatch.Expected != hiringflow.ExpectedStep(c.role) {
			t.Errorf("StageMismatchError fields = %+v, want current %q expected %q",
				mismatch, c.current, hiringflow.ExpectedStep(c.role))
		}
	}
}

// ── Role/decision pairing is validated ─────────────────────────────────────

func TestNext_RejectsForeignDecisionLabels(t *testing.T) {
	cases := []struct {
		role     hiringflow.Role
		decision hiringflow.Decision
	}{
		{hiringflow.RoleVerifier, hiringflow.DecisionRecommend},
		{hiringflow.RoleHM1, hiringflow.DecisionApproved},
		{hiringflow.RoleApprover1, hiringflow.DecisionRecommend},
		{hiringflow.RoleApprover1, hiringflow.DecisionRequestChange},
		{hiringflow.RoleSalaryVerification, hiringflow.DecisionRecommend},
	}
	for _, c := range cases {
		_, err := hiringflow.Next(hiringflow.ExpectedStep(c.role), c.role, c.decision, bothReviewers)
		var validation *hiringflow.ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("Next(%s, %s) error = %v, want ValidationError", c.role, c.decision, err)
		}
	}
}

// ── Full-chain walkthroughs ────────────────────────────────────────────────

// Shortest path: no second reviewers anywhere.
func TestNext_FullChainWithoutSecondReviewers(t *testing.T) {
	step := hiringflow.StepReadyForVerification
	chain := []struct {
		role     hiringflow.Role
		decision hiringflow.Decision
	}{
		{hiringflow.RoleVerifier, hiringflow.DecisionApproved},
		{hiringflow.RoleHM1, hiringflow.DecisionRecommend},
		{hiringflow.RoleApprover1, hiringflow.DecisionApproved},
	}
	for _, c := range chain {
		var err error
		step, err = hiringflow.Next(step, c.role, c.decision, noSecondReviewers)
		if err != nil {
			t.Fatalf("Next(%s, %s) returned unexpected error: %v", c.role, c.decision, err)
		}
	}
	if step != hiringflow.StepReadyForContractIssuance {
		t.Errorf("final step = %q, want %q", step, hiringflow.StepReadyForContractIssuance)
	}
}

// Longest path: both optional reviewers present.
func TestNext_FullChainWithSecondReviewers(t *testing.T) {
	step := hiringflow.StepReadyForVerification
	chain := []struct {
		role     hiringflow.Role
		decision hiringflow.Decision
	}{
		{hiringflow.RoleVerifier, hiringflow.DecisionApproved},
		{hiringflow.RoleHM1, hiringflow.DecisionRecommend},
		{hiringflow.RoleHM2, hiringflow.DecisionRecommend},
		{hiringflow.RoleApprover1, hiringflow.DecisionApproved},
		{hiringflow.RoleApprover2, hiringflow.DecisionApproved},
	}
	for _, c := range chain {
		var err error
		step, err = hiringflow.Next(step, c.role, c.decision, bothReviewers)
		if err != nil {
			t.Fatalf("Next(%s, %s) returned unexpected error: %v", c.role, c.decision, err)
		}
	}
	if step != hiringflow.StepReadyForContractIssuance {
		t.Errorf("final step = %q, want %q", step, hiringflow.StepReadyForContractIssuance)
	}
}
