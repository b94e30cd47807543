// Package hiringflow defines the hiring-approval state machine for candidates.
//
// Main flow (advances only on positive decisions; negative decisions freeze
// the workflow at its current step):
//
//	Selected for Hiring ──► … ──► Salary Package Prepared ──► Ready for Verification
//	    ──► Recommendation (HM1) ──► [Recommendation (HM2)] ──► Approval (Approver 1)
//	    ──► [Approval (Approver 2)] ──► Ready for Contract Issuance ──► Contract Issued
//
// Bracketed stages are skipped when no second-reviewer email is set on the
// workflow record.
//
// The salary verification sub-flow is a separate, smaller machine sharing the
// same record: Salary Package Prepared ──► Verified / Change Requested / Rejected.
package hiringflow

import "fmt"

// Step values mirror the current_step column in PostgreSQL.
type Step string

// Main-flow stages, in pipeline order.
const (
	StepSelectedForHiring             Step = "Selected for Hiring"
	StepAssessmentNotificationSent    Step = "Assessment Notification Sent"
	StepAssessmentCompleted           Step = "Assessment Completed"
	StepBackgroundCheckCompleted      Step = "Background Check Completed"
	StepSalaryPackagePrepared         Step = "Salary Package Prepared"
	StepReadyForVerification          Step = "Ready for Verification"
	StepReadyForRecommendationHM1     Step = "Ready for Recommendation – Hiring Manager 1"
	StepReadyForRecommendationHM2     Step = "Ready for Recommendation – Hiring Manager 2"
	StepReadyForApprovalApprover1     Step = "Ready for Approval – Approver 1"
	StepReadyForApprovalApprover2     Step = "Ready for Approval – Approver 2"
	StepReadyForContractIssuance      Step = "Ready for Contract Issuance"
	StepContractIssued                Step = "Contract Issued"
)

// Salary sub-flow outcomes. "Salary Package - Change Requested" keeps the
// plain hyphen the salary endpoint has always written, unlike the en dashes
// in the main-flow stage names.
const (
	StepSalaryVerifiedAndApproved Step = "Salary Verified and Approved"
	StepSalaryChangeRequested     Step = "Salary Package - Change Requested"
	StepSalaryPackageRejected     Step = "Salary Package Rejected"
)

// mainFlowOrder gives each main-flow stage its pipeline position.
var mainFlowOrder = map[Step]int{
	StepSelectedForHiring:          0,
	StepAssessmentNotificationSent: 1,
	StepAssessmentCompleted:        2,
	StepBackgroundCheckCompleted:   3,
	StepSalaryPackagePrepared:      4,
	StepReadyForVerification:       5,
	StepReadyForRecommendationHM1:  6,
	StepReadyForRecommendationHM2:  7,
	StepReadyForApprovalApprover1:  8,
	StepReadyForApprovalApprover2:  9,
	StepReadyForContractIssuance:   10,
	StepContractIssued:             11,
}

// ParseStep converts a raw string to a Step, returning an error for unknown
// values. Salary sub-flow outcomes are valid Steps too.
func ParseStep(s string) (Step, error) {
	st := Step(s)
	if _, ok := mainFlowOrder[st]; ok {
		return st, nil
	}
	switch st {
	case StepSalaryVerifiedAndApproved, StepSalaryChangeRequested, StepSalaryPackageRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown hiring flow step %q", s)
}

// Role identifies the class of approver acting on a workflow, not an
// individual user. Values mirror the role column on approval tokens and the
// keys of the approvals record.
type Role string

const (
	RoleVerifier           Role = "verifier"
	RoleHM1                Role = "hm1"
	RoleHM2                Role = "hm2"
	RoleApprover1          Role = "approver1"
	RoleApprover2          Role = "approver2"
	RoleSalaryVerification Role = "salary_verification"
)

// ParseRole converts a raw string to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleVerifier, RoleHM1, RoleHM2, RoleApprover1, RoleApprover2, RoleSalaryVerification:
		return r, nil
	}
	return "", fmt.Errorf("unknown approval role %q", s)
}

// Decision is the label recorded in the approval log. Each role accepts a
// specific subset (see decisionsByRole).
type Decision string

const (
	DecisionApproved       Decision = "Approved"
	DecisionRejected       Decision = "Rejected"
	DecisionRequestChange  Decision = "Request Change"
	DecisionRecommend      Decision = "Recommend"
	DecisionDoNotRecommend Decision = "Do Not Recommend"
)

// decisionsByRole lists the decision labels each role may submit.
var decisionsByRole = map[Role][]Decision{
	RoleVerifier:           {DecisionApproved, DecisionRejected, DecisionRequestChange},
	RoleHM1:                {DecisionRecommend, DecisionDoNotRecommend},
	RoleHM2:                {DecisionRecommend, DecisionDoNotRecommend},
	RoleApprover1:          {DecisionApproved, DecisionRejected},
	RoleApprover2:          {DecisionApproved, DecisionRejected},
	RoleSalaryVerification: {DecisionApproved, DecisionRequestChange, DecisionRejected},
}

// ParseDecision validates that raw is a known decision label without regard
// to role; role-specific validation happens in Next once the token has been
// redeemed and the role is known.
func ParseDecision(raw string) (Decision, error) {
	d := Decision(raw)
	switch d {
	case DecisionApproved, DecisionRejected, DecisionRequestChange, DecisionRecommend, DecisionDoNotRecommend:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", raw)
}

// ParseSalaryDecision maps the lowercase wire values of the salary endpoint
// to their recorded labels.
func ParseSalaryDecision(raw string) (Decision, error) {
	switch raw {
	case "approved":
		return DecisionApproved, nil
	case "request_change":
		return DecisionRequestChange, nil
	case "rejected":
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("unknown salary decision %q", raw)
}

// decisionAllowed reports whether role may submit d.
func decisionAllowed(role Role, d Decision) bool {
	for _, allowed := range decisionsByRole[role] {
		if allowed == d {
			return true
		}
	}
	return false
}

// ExpectedStep returns the stage a workflow must be at for the given role's
// decision to apply.
func ExpectedStep(role Role) Step {
	switch role {
	case RoleVerifier:
		return StepReadyForVerification
	case RoleHM1:
		return StepReadyForRecommendationHM1
	case RoleHM2:
		return StepReadyForRecommendationHM2
	case RoleApprover1:
		return StepReadyForApprovalApprover1
	case RoleApprover2:
		return StepReadyForApprovalApprover2
	case RoleSalaryVerification:
		return StepSalaryPackagePrepared
	}
	return ""
}

// Routing captures the optional-reviewer emails that decide whether the HM2
// and Approver 2 stages exist for a given workflow.
type Routing struct {
	HasHM2       bool
	HasApprover2 bool
}

// Next computes the step a workflow moves to when role submits d at current.
//
// Negative decisions (Rejected, Do Not Recommend, Request Change on the
// verifier) return current unchanged: rejection freezes the workflow rather
// than rolling it back, and resubmission happens out of band.
//
// Returns a *StageMismatchError when current is not the stage role acts on,
// so a consumed-but-delayed token can never apply an out-of-order mutation.
func Next(current Step, role Role, d Decision, r Routing) (Step, error) {
	if !decisionAllowed(role, d) {
		return "", &ValidationError{Msg: fmt.Sprintf("decision %q is not valid for role %s", d, role)}
	}
	if expected := ExpectedStep(role); current != expected {
		return "", &StageMismatchError{Role: role, Expected: expected, Current: current}
	}

	switch role {
	case RoleVerifier:
		if d == DecisionApproved {
			return StepReadyForRecommendationHM1, nil
		}
	case RoleHM1:
		if d == DecisionRecommend {
			if r.HasHM2 {
				return StepReadyForRecommendationHM2, nil
			}
			return StepReadyForApprovalApprover1, nil
		}
	case RoleHM2:
		if d == DecisionRecommend {
			return StepReadyForApprovalApprover1, nil
		}
	case RoleApprover1:
		if d == DecisionApproved {
			if r.HasApprover2 {
				return StepReadyForApprovalApprover2, nil
			}
			return StepReadyForContractIssuance, nil
		}
	case RoleApprover2:
		if d == DecisionApproved {
			return StepReadyForContractIssuance, nil
		}
	case RoleSalaryVerification:
		switch d {
		case DecisionApproved:
			return StepSalaryVerifiedAndApproved, nil
		case DecisionRequestChange:
			return StepSalaryChangeRequested, nil
		case DecisionRejected:
			return StepSalaryPackageRejected, nil
		}
	}

	return current, nil
}

// BeforeVerification reports whether step is a main-flow stage that precedes
// Ready for Verification — the window in which a verification request may be
// issued.
func BeforeVerification(step Step) bool {
	pos, ok := mainFlowOrder[step]
	return ok && pos < mainFlowOrder[StepReadyForVerification]
}
