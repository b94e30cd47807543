package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/approval-service/internal/hiringflow"
	"talentflow/approval-service/internal/httpapi"
	"talentflow/approval-service/internal/store"
)

type env struct {
	mux    *http.ServeMux
	flows  *store.MemoryFlowStore
	tokens *store.MemoryTokenStore
	svc    *hiringflow.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		mux:    http.NewServeMux(),
		flows:  store.NewMemoryFlowStore(),
		tokens: store.NewMemoryTokenStore(),
	}
	e.svc = hiringflow.NewService(e.flows, e.tokens, nil, nil)
	httpapi.NewHandler(e.svc).RegisterRoutes(e.mux)
	return e
}

func (e *env) seedFlow(t *testing.T, step hiringflow.Step) {
	t.Helper()
	rec, err := e.svc.StartFlow(context.Background(), &hiringflow.FlowRecord{
		CandidateID:         "cand-1",
		Name:                "Aisha Rahman",
		Position:            "Senior Engineer",
		VerifierEmail:       "verifier@example.com",
		HiringManager1Email: "hm1@example.com",
		Approver1Email:      "approver1@example.com",
	})
	require.NoError(t, err)
	if step != rec.CurrentStep {
		_, err = e.flows.SetStep(context.Background(), "cand-1", rec.CurrentStep, step)
		require.NoError(t, err)
	}
}

func (e *env) seedToken(t *testing.T, role hiringflow.Role) string {
	t.Helper()
	tok := &hiringflow.Token{
		Token:         "tok-" + string(role),
		CandidateID:   "cand-1",
		Role:          role,
		ApproverEmail: string(role) + "@example.com",
		ExpiresAt:     time.Now().UTC().Add(time.Hour),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, e.tokens.Mint(context.Background(), tok))
	return tok.Token
}

func (e *env) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

// ── /approval-decision ─────────────────────────────────────────────────────

func TestApprovalDecision_Success(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForRecommendationHM1)
	token := e.seedToken(t, hiringflow.RoleHM1)

	w, body := e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"`+token+`","decision":"Recommend","comment":"strong fit"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Decision recorded successfully", body["message"])
	assert.Equal(t, "Aisha Rahman", body["candidate"])
	assert.Equal(t, "Recommend", body["decision"])
	assert.Equal(t, "Ready for Approval – Approver 1", body["nextStep"])
}

func TestApprovalDecision_MissingFields(t *testing.T) {
	e := newEnv(t)
	for _, body := range []string{``, `{}`, `{"token":"x"}`, `{"decision":"Approved"}`} {
		w, resp := e.do(t, http.MethodPost, "/approval-decision", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.NotEmpty(t, resp["error"])
	}
}

func TestApprovalDecision_UnknownDecisionDoesNotBurnToken(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForRecommendationHM1)
	token := e.seedToken(t, hiringflow.RoleHM1)

	w, _ := e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"`+token+`","decision":"Recomend"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// the typo must not have consumed the token
	w, _ = e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"`+token+`","decision":"Recommend"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApprovalDecision_InvalidToken(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"no-such-token","decision":"Approved"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestApprovalDecision_StaleStageConflict(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForApprovalApprover1)
	// leftover HM1 token after the workflow moved on
	token := e.seedToken(t, hiringflow.RoleHM1)

	w, _ := e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"`+token+`","decision":"Recommend"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApprovalDecision_VerifierTokenRejected(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForVerification)
	token := e.seedToken(t, hiringflow.RoleVerifier)

	w, body := e.do(t, http.MethodPost, "/approval-decision",
		`{"token":"`+token+`","decision":"Approved"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestApprovalDecision_MethodNotAllowed(t *testing.T) {
	e := newEnv(t)
	w, _ := e.do(t, http.MethodGet, "/approval-decision", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// ── /verification-decision ─────────────────────────────────────────────────

func TestVerificationDecision_Success(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForVerification)
	token := e.seedToken(t, hiringflow.RoleVerifier)

	w, body := e.do(t, http.MethodPost, "/verification-decision",
		`{"token":"`+token+`","decision":"Approved"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ready for Recommendation – Hiring Manager 1", body["nextStep"])
}

func TestVerificationDecision_ApproverTokenRejected(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForApprovalApprover1)
	token := e.seedToken(t, hiringflow.RoleApprover1)

	w, _ := e.do(t, http.MethodPost, "/verification-decision",
		`{"token":"`+token+`","decision":"Approved"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── /salary-decision ───────────────────────────────────────────────────────

func TestSalaryDecision_Success(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepSalaryPackagePrepared)

	w, body := e.do(t, http.MethodPost, "/salary-decision",
		`{"candidate_id":"cand-1","step":"verification","decision":"request_change","comment":"needs breakdown"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Decision submitted successfully", body["message"])
	assert.Equal(t, "Salary Package - Change Requested", body["current_step"])
}

func TestSalaryDecision_RejectsDisplayLabel(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepSalaryPackagePrepared)

	w, _ := e.do(t, http.MethodPost, "/salary-decision",
		`{"candidate_id":"cand-1","step":"verification","decision":"Approved"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSalaryDecision_MissingComment(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepSalaryPackagePrepared)

	w, _ := e.do(t, http.MethodPost, "/salary-decision",
		`{"candidate_id":"cand-1","step":"verification","decision":"rejected"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSalaryDecision_UnknownCandidate(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, http.MethodPost, "/salary-decision",
		`{"candidate_id":"missing","step":"verification","decision":"approved"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Candidate not found", body["error"])
}

// ── /verification-data ─────────────────────────────────────────────────────

func TestVerificationData_ByCandidateID(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForVerification)

	w, body := e.do(t, http.MethodGet, "/verification-data?candidate_id=cand-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cand-1", body["candidate_id"])

	candidate, ok := body["candidate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Aisha Rahman", candidate["name"])
}

func TestVerificationData_ByToken(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepReadyForVerification)
	token := e.seedToken(t, hiringflow.RoleVerifier)

	w, body := e.do(t, http.MethodGet, "/verification-data?token="+token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cand-1", body["candidate_id"])
}

func TestVerificationData_MissingParams(t *testing.T) {
	e := newEnv(t)
	w, _ := e.do(t, http.MethodGet, "/verification-data", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── /hiring-flows ──────────────────────────────────────────────────────────

func TestCreateHiringFlow_Success(t *testing.T) {
	e := newEnv(t)
	w, body := e.do(t, http.MethodPost, "/hiring-flows",
		`{"candidate_id":"cand-9","name":"Lim Wei","position":"Data Engineer",
		  "hiring_manager1_email":"hm1@example.com","approver1_email":"a1@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "cand-9", body["candidate_id"])
	assert.Equal(t, "Selected for Hiring", body["current_step"])
}

func TestCreateHiringFlow_MissingRequired(t *testing.T) {
	e := newEnv(t)
	w, _ := e.do(t, http.MethodPost, "/hiring-flows", `{"candidate_id":"cand-9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestVerification_Route(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepSalaryPackagePrepared)

	w, body := e.do(t, http.MethodPost, "/hiring-flows/cand-1/request-verification", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Verification request sent to verifier@example.com", body["message"])
	assert.Equal(t, "Ready for Verification", body["current_step"])
}

func TestRequestVerification_UnknownAction(t *testing.T) {
	e := newEnv(t)
	e.seedFlow(t, hiringflow.StepSalaryPackagePrepared)

	w, _ := e.do(t, http.MethodPost, "/hiring-flows/cand-1/reset", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
