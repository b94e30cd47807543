package notify

import (
	"fmt"
	"html"
	"strings"

	"talentflow/approval-service/internal/hiringflow"
)

// roleTitles maps roles to the stage title shown in email subjects.
var roleTitles = map[hiringflow.Role]string{
	hiringflow.RoleHM1:       "Recommendation – Hiring Manager 1",
	hiringflow.RoleHM2:       "Recommendation – Hiring Manager 2",
	hiringflow.RoleApprover1: "Approval – Approver 1",
	hiringflow.RoleApprover2: "Approval – Approver 2",
}

// ApprovalRequestEmail composes the request sent to a hiring manager or
// approver. Pure function of the record, role, and response link.
func ApprovalRequestEmail(rec *hiringflow.FlowRecord, role hiringflow.Role, link string) Email {
	title := roleTitles[role]
	if title == "" {
		title = string(role)
	}
	subject := fmt.Sprintf("Approval Request: %s - %s (%s)", title, rec.Name, rec.Position)

	var h strings.Builder
	h.WriteString("<html><body>")
	h.WriteString("<h2>Candidate Approval Request</h2>")
	fmt.Fprintf(&h, "<p>You have received a <strong>%s</strong> request for the following candidate.</p>", html.EscapeString(title))
	h.WriteString("<h3>Candidate Information</h3><ul>")
	fmt.Fprintf(&h, "<li>Name: %s</li>", html.EscapeString(rec.Name))
	fmt.Fprintf(&h, "<li>Position: %s</li>", html.EscapeString(rec.Position))
	fmt.Fprintf(&h, "<li>Current Step: %s</li>", html.EscapeString(string(rec.CurrentStep)))
	fmt.Fprintf(&h, "<li>Assessment Status: %s</li>", html.EscapeString(rec.AssessmentStatus))
	fmt.Fprintf(&h, "<li>Background Check: %s</li>", html.EscapeString(rec.BackgroundCheckStatus))
	h.WriteString("</ul>")
	fmt.Fprintf(&h, `<p><a href="%s">Review &amp; Approve/Reject</a></p>`, link)
	h.WriteString("<p>This link will expire in 7 days and can only be used once.</p>")
	if rec.Recruiter != "" {
		fmt.Fprintf(&h, "<p>Requested by: %s</p>", html.EscapeString(rec.Recruiter))
	}
	h.WriteString("</body></html>")

	var t strings.Builder
	fmt.Fprintf(&t, "You have received a %s request for the following candidate.\n\n", title)
	t.WriteString("=== CANDIDATE INFORMATION ===\n")
	fmt.Fprintf(&t, "Name: %s\nPosition: %s\nCurrent Step: %s\n", rec.Name, rec.Position, rec.CurrentStep)
	fmt.Fprintf(&t, "Assessment Status: %s\nBackground Check: %s\n\n", rec.AssessmentStatus, rec.BackgroundCheckStatus)
	t.WriteString("=== ACTION REQUIRED ===\n")
	fmt.Fprintf(&t, "Review and submit your decision:\n%s\n\n", link)
	t.WriteString("This link expires in 7 days and can only be used once.\n")
	if rec.Recruiter != "" {
		fmt.Fprintf(&t, "\nRequested by: %s\n", rec.Recruiter)
	}

	return Email{Subject: subject, HTML: h.String(), Text: t.String()}
}

// VerificationRequestEmail composes the salary-package verification request
// sent to the verifier.
func VerificationRequestEmail(rec *hiringflow.FlowRecord, link string) Email {
	subject := fmt.Sprintf("Salary Package Verification Required - %s (%s)", rec.Name, rec.Position)
	analysis := hiringflow.AnalyzeSalary(rec.SalaryProposal)

	var h strings.Builder
	h.WriteString("<html><body>")
	h.WriteString("<h2>Salary Package Verification Required</h2>")
	h.WriteString("<p>Dear Verifier,</p><p>A salary package requires your verification and approval.</p>")
	h.WriteString("<h3>Candidate Information</h3><ul>")
	fmt.Fprintf(&h, "<li>Name: %s</li>", html.EscapeString(rec.Name))
	fmt.Fprintf(&h, "<li>Position: %s</li>", html.EscapeString(rec.Position))
	if rec.Recruiter != "" {
		fmt.Fprintf(&h, "<li>Recruiter: %s (%s)</li>", html.EscapeString(rec.Recruiter), html.EscapeString(rec.RecruiterEmail))
	}
	h.WriteString("</ul><h3>Assessment &amp; Background Check</h3><ul>")
	fmt.Fprintf(&h, "<li>Assessment Status: %s</li>", html.EscapeString(rec.AssessmentStatus))
	if rec.AssessmentScore != "" {
		fmt.Fprintf(&h, "<li>Assessment Score: %s</li>", html.EscapeString(rec.AssessmentScore))
	}
	fmt.Fprintf(&h, "<li>Background Check: %s</li>", html.EscapeString(rec.BackgroundCheckStatus))
	h.WriteString("</ul><h3>Proposed Salary Package</h3><ul>")
	fmt.Fprintf(&h, "<li>Basic Salary: RM %.2f</li>", analysis.BasicSalary)
	fmt.Fprintf(&h, "<li>Allowances Total: RM %.2f</li>", analysis.AllowancesTotal)
	fmt.Fprintf(&h, "<li>Total Salary: RM %.2f</li>", analysis.TotalSalary)
	fmt.Fprintf(&h, "<li>Range Fit: %s</li>", html.EscapeString(analysis.RangeFitLabel))
	h.WriteString("</ul>")
	fmt.Fprintf(&h, `<p><a href="%s">Review &amp; Submit Decision</a></p>`, link)
	h.WriteString("<p><strong>Note:</strong> This link is valid for 7 days.</p>")
	h.WriteString("<p>Best regards,<br><strong>Talent Acquisition Team</strong></p>")
	h.WriteString("</body></html>")

	var t strings.Builder
	t.WriteString("Dear Verifier,\n\nA salary package requires your verification and approval.\n\n")
	t.WriteString("=== CANDIDATE INFORMATION ===\n")
	fmt.Fprintf(&t, "Name: %s\nPosition: %s\n", rec.Name, rec.Position)
	if rec.Recruiter != "" {
		fmt.Fprintf(&t, "Recruiter: %s (%s)\n", rec.Recruiter, rec.RecruiterEmail)
	}
	t.WriteString("\n=== ASSESSMENT & BACKGROUND CHECK ===\n")
	fmt.Fprintf(&t, "Assessment Status: %s\n", rec.AssessmentStatus)
	if rec.AssessmentScore != "" {
		fmt.Fprintf(&t, "Assessment Score: %s\n", rec.AssessmentScore)
	}
	fmt.Fprintf(&t, "Background Check: %s\n", rec.BackgroundCheckStatus)
	t.WriteString("\n=== PROPOSED SALARY PACKAGE ===\n")
	fmt.Fprintf(&t, "Basic Salary: RM %.2f\nAllowances Total: RM %.2f\nTotal Salary: RM %.2f\n", analysis.BasicSalary, analysis.AllowancesTotal, analysis.TotalSalary)
	fmt.Fprintf(&t, "Range Fit: %s\n", analysis.RangeFitLabel)
	fmt.Fprintf(&t, "\nSubmit your decision:\n%s\n\nThis link is valid for 7 days.\n", link)
	t.WriteString("\nBest regards,\nTalent Acquisition Team\n")

	return Email{Subject: subject, HTML: h.String(), Text: t.String()}
}
