package hiringflow

import "time"

// ApprovalEntry is one recorded decision in the approvals log. Timestamp is
// set server-side at decision-processing time, never taken from the client.
type ApprovalEntry struct {
	Decision  Decision  `json:"decision"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
	Email     string    `json:"email,omitempty"`
	// Step carries the client-reported verification step for salary
	// decisions only.
	Step string `json:"step,omitempty"`
}

// Approvals holds at most one decision per role. A populated field is never
// overwritten — the store rejects a second write for the same role.
type Approvals struct {
	Verifier           *ApprovalEntry `json:"verifier,omitempty"`
	HM1                *ApprovalEntry `json:"hm1,omitempty"`
	HM2                *ApprovalEntry `json:"hm2,omitempty"`
	Approver1          *ApprovalEntry `json:"approver1,omitempty"`
	Approver2          *ApprovalEntry `json:"approver2,omitempty"`
	SalaryVerification *ApprovalEntry `json:"salary_verification,omitempty"`
}

// Get returns the entry recorded for role, or nil.
func (a *Approvals) Get(role Role) *ApprovalEntry {
	switch role {
	case RoleVerifier:
		return a.Verifier
	case RoleHM1:
		return a.HM1
	case RoleHM2:
		return a.HM2
	case RoleApprover1:
		return a.Approver1
	case RoleApprover2:
		return a.Approver2
	case RoleSalaryVerification:
		return a.SalaryVerification
	}
	return nil
}

// Set records entry under role. Callers must have checked Get(role) == nil;
// the persistent store enforces the same guard at commit time.
func (a *Approvals) Set(role Role, entry *ApprovalEntry) {
	switch role {
	case RoleVerifier:
		a.Verifier = entry
	case RoleHM1:
		a.HM1 = entry
	case RoleHM2:
		a.HM2 = entry
	case RoleApprover1:
		a.Approver1 = entry
	case RoleApprover2:
		a.Approver2 = entry
	case RoleSalaryVerification:
		a.SalaryVerification = entry
	}
}

// Roles returns the role keys that have a recorded decision.
func (a *Approvals) Roles() []Role {
	all := []Role{RoleVerifier, RoleHM1, RoleHM2, RoleApprover1, RoleApprover2, RoleSalaryVerification}
	present := make([]Role, 0, len(all))
	for _, r := range all {
		if a.Get(r) != nil {
			present = append(present, r)
		}
	}
	return present
}

// SalaryProposal is the externally-populated package consumed read-only by
// the verification stage. Amounts are in RM.
type SalaryProposal struct {
	BasicSalary          float64 `json:"basic_salary"`
	AllowancesTotal      float64 `json:"allowances_total"`
	TotalSalary          float64 `json:"total_salary"`
	EmployerContribution float64 `json:"employer_contribution_rm"`
	TotalCTC             float64 `json:"total_ctc"`
	BandMin              float64 `json:"band_min_rm"`
	BandMid              float64 `json:"band_mid_rm"`
	BandMax              float64 `json:"band_max_rm"`
	TeamMedianSalary     float64 `json:"team_median_salary"`
	RoleBudgetMaxCTC     float64 `json:"role_budget_max_ctc"`
	YearsOfExperience    int     `json:"years_of_experience"`
}

// FlowRecord is the per-candidate hiring-flow row. One active record per
// candidate; mutated exclusively through the transition engine, never
// deleted by this service.
type FlowRecord struct {
	CandidateID           string         `json:"candidate_id"`
	Name                  string         `json:"name"`
	Position              string         `json:"position"`
	Recruiter             string         `json:"recruiter"`
	RecruiterEmail        string         `json:"recruiter_email"`
	CurrentStep           Step           `json:"current_step"`
	AssessmentStatus      string         `json:"assessment_status"`
	AssessmentScore       string         `json:"assessment_score"`
	BackgroundCheckStatus string         `json:"background_check_status"`
	Approvals             Approvals      `json:"approvals"`
	SalaryProposal        SalaryProposal `json:"salary_proposal"`
	VerifierEmail         string         `json:"verifier_email"`
	HiringManager1Email   string         `json:"hiring_manager1_email"`
	HiringManager2Email   string         `json:"hiring_manager2_email"`
	Approver1Email        string         `json:"approver1_email"`
	Approver2Email        string         `json:"approver2_email"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Routing derives the optional-reviewer routing from the record's contact
// fields: an absent email routes around that stage entirely.
func (r *FlowRecord) Routing() Routing {
	return Routing{
		HasHM2:       r.HiringManager2Email != "",
		HasApprover2: r.Approver2Email != "",
	}
}

// NextActor returns the role and recipient who must act at step, or ok=false
// when the step has no pending approver (terminal steps, early pipeline
// stages, or a missing contact email).
func (r *FlowRecord) NextActor(step Step) (Role, string, bool) {
	var role Role
	var email string
	switch step {
	case StepReadyForVerification:
		role, email = RoleVerifier, r.VerifierEmail
	case StepReadyForRecommendationHM1:
		role, email = RoleHM1, r.HiringManager1Email
	case StepReadyForRecommendationHM2:
		role, email = RoleHM2, r.HiringManager2Email
	case StepReadyForApprovalApprover1:
		role, email = RoleApprover1, r.Approver1Email
	case StepReadyForApprovalApprover2:
		role, email = RoleApprover2, r.Approver2Email
	default:
		return "", "", false
	}
	if email == "" {
		return "", "", false
	}
	return role, email, true
}

// Token is a single-use, expiring credential binding one workflow and role
// to a decision-submission capability.
type Token struct {
	Token         string    `json:"token"`
	CandidateID   string    `json:"candidate_id"`
	Role          Role      `json:"role"`
	ApproverEmail string    `json:"approver_email"`
	Used          bool      `json:"used"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
