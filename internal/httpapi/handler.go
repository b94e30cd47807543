// Package httpapi implements the HTTP handlers for the approval service.
//
// Routes:
//
//	POST /approval-decision                          → hiring manager / approver decision (token-gated)
//	POST /verification-decision                      → verifier decision (token-gated)
//	POST /salary-decision                            → salary verification decision
//	GET  /verification-data?candidate_id=|token=     → read-only verification projection
//	POST /hiring-flows                               → start a hiring flow
//	POST /hiring-flows/{id}/request-verification     → dispatch the verification request
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"talentflow/approval-service/internal/hiringflow"
)

// Handler holds shared dependencies.
type Handler struct {
	svc *hiringflow.Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *hiringflow.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all approval-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/approval-decision", h.handleApprovalDecision)
	mux.HandleFunc("/verification-decision", h.handleVerificationDecision)
	mux.HandleFunc("/salary-decision", h.handleSalaryDecision)
	mux.HandleFunc("/verification-data", h.handleVerificationData)
	mux.HandleFunc("/hiring-flows", h.handleHiringFlows)
	mux.HandleFunc("/hiring-flows/", h.handleHiringFlowAction)
}

// ─── Decision endpoints ───────────────────────────────────────────────────────

type decisionRequest struct {
	Token    string `json:"token"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// handleApprovalDecision serves hiring-manager and approver tokens.
func (h *Handler) handleApprovalDecision(w http.ResponseWriter, r *http.Request) {
	h.tokenDecision(w, r,
		hiringflow.RoleHM1, hiringflow.RoleHM2,
		hiringflow.RoleApprover1, hiringflow.RoleApprover2)
}

// handleVerificationDecision serves verifier tokens only.
func (h *Handler) handleVerificationDecision(w http.ResponseWriter, r *http.Request) {
	h.tokenDecision(w, r, hiringflow.RoleVerifier)
}

func (h *Handler) tokenDecision(w http.ResponseWriter, r *http.Request, roles ...hiringflow.Role) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" || body.Decision == "" {
		jsonError(w, "body must contain token and decision", http.StatusBadRequest)
		return
	}

	// Reject unknown decision labels before the token is consumed: a typo
	// must not burn a single-use link.
	decision, err := hiringflow.ParseDecision(body.Decision)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.ApplyDecision(r.Context(), body.Token, decision, body.Comment, roles...)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	jsonOK(w, map[string]any{
		"success":   true,
		"message":   "Decision recorded successfully",
		"candidate": result.Candidate,
		"decision":  result.Decision,
		"nextStep":  result.NextStep,
	})
}

type salaryDecisionRequest struct {
	CandidateID string `json:"candidate_id"`
	Step        string `json:"step"`
	Decision    string `json:"decision"`
	Comment     string `json:"comment"`
}

func (h *Handler) handleSalaryDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body salaryDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
		body.CandidateID == "" || body.Step == "" || body.Decision == "" {
		jsonError(w, "candidate_id, step, and decision are required", http.StatusBadRequest)
		return
	}

	decision, err := hiringflow.ParseSalaryDecision(body.Decision)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.ApplySalaryDecision(r.Context(), body.CandidateID, body.Step, decision, body.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	jsonOK(w, map[string]any{
		"success":      true,
		"message":      "Decision submitted successfully",
		"decision":     result.Decision,
		"current_step": result.NextStep,
	})
}

// ─── Read-only projection ─────────────────────────────────────────────────────

func (h *Handler) handleVerificationData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := h.svc.VerificationData(r.Context(),
		r.URL.Query().Get("candidate_id"), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	jsonOK(w, data)
}

// ─── Hiring flow lifecycle ────────────────────────────────────────────────────

type createFlowRequest struct {
	CandidateID           string                    `json:"candidate_id"`
	Name                  string                    `json:"name"`
	Position              string                    `json:"position"`
	Recruiter             string                    `json:"recruiter"`
	RecruiterEmail        string                    `json:"recruiter_email"`
	AssessmentStatus      string                    `json:"assessment_status"`
	AssessmentScore       string                    `json:"assessment_score"`
	BackgroundCheckStatus string                    `json:"background_check_status"`
	SalaryProposal        hiringflow.SalaryProposal `json:"salary_proposal"`
	VerifierEmail         string                    `json:"verifier_email"`
	HiringManager1Email   string                    `json:"hiring_manager1_email"`
	HiringManager2Email   string                    `json:"hiring_manager2_email"`
	Approver1Email        string                    `json:"approver1_email"`
	Approver2Email        string                    `json:"approver2_email"`
}

func (h *Handler) handleHiringFlows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.StartFlow(r.Context(), &hiringflow.FlowRecord{
		CandidateID:           body.CandidateID,
		Name:                  body.Name,
		Position:              body.Position,
		Recruiter:             body.Recruiter,
		RecruiterEmail:        body.RecruiterEmail,
		AssessmentStatus:      body.AssessmentStatus,
		AssessmentScore:       body.AssessmentScore,
		BackgroundCheckStatus: body.BackgroundCheckStatus,
		SalaryProposal:        body.SalaryProposal,
		VerifierEmail:         body.VerifierEmail,
		HiringManager1Email:   body.HiringManager1Email,
		HiringManager2Email:   body.HiringManager2Email,
		Approver1Email:        body.Approver1Email,
		Approver2Email:        body.Approver2Email,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":      true,
		"candidate_id": rec.CandidateID,
		"current_step": rec.CurrentStep,
	})
}

// handleHiringFlowAction handles POST /hiring-flows/{id}/request-verification
func (h *Handler) handleHiringFlowAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	candidateID := parts[1]
	action := parts[2]

	switch action {
	case "request-verification":
		rec, err := h.svc.RequestVerification(r.Context(), candidateID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		jsonOK(w, map[string]any{
			"success":      true,
			"message":      fmt.Sprintf("Verification request sent to %s", rec.VerifierEmail),
			"current_step": rec.CurrentStep,
		})
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *hiringflow.ValidationError
	var mismatch *hiringflow.StageMismatchError
	var decided *hiringflow.AlreadyDecidedError

	switch {
	case errors.Is(err, hiringflow.ErrTokenInvalid):
		jsonError(w, "Invalid or expired token", http.StatusBadRequest)
	case errors.Is(err, hiringflow.ErrNotFound):
		jsonError(w, "Candidate not found", http.StatusNotFound)
	case errors.As(err, &validation):
		jsonError(w, validation.Msg, http.StatusBadRequest)
	case errors.As(err, &mismatch):
		jsonError(w, mismatch.Error(), http.StatusConflict)
	case errors.As(err, &decided):
		jsonError(w, decided.Error(), http.StatusConflict)
	default:
		log.Printf("[approval] unexpected service error: %v", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
