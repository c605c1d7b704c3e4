package httptransport

import (
	"encoding/json"
	"net/http"

	"certledger/internal/credential/models"
	credentialservice "certledger/internal/credential/service"
	identitymodels "certledger/internal/identity/models"
	"certledger/internal/platform/middleware"
	jsonx "certledger/internal/transport/http/json"
	"certledger/internal/transport/http/shared"
	"certledger/internal/verification"
	dErrors "certledger/pkg/domain-errors"
)

// CredentialHandler serves issuance, verification, and listing.
type CredentialHandler struct {
	credentials *credentialservice.Service
	verifier    *verification.Engine
}

type issueRequest struct {
	StudentName    string   `json:"student_name"`
	StudentEmail   string   `json:"student_email"`
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	GraduationYear int      `json:"graduation_year"`
	CGPA           *float64 `json:"cgpa"`
	RegNumber      string   `json:"reg_number"`
	Honours        string   `json:"honours"`
	StateOfOrigin  string   `json:"state_of_origin"`
}

type issueResponse struct {
	Digest       string             `json:"hash"`
	LedgerStored bool               `json:"ledger_stored"`
	Record       *models.Credential `json:"record"`
}

func (h *CredentialHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	actor := middleware.GetIdentity(r.Context())
	result, err := h.credentials.Issue(r.Context(), actor.Username, actor.Email, credentialservice.IssueRequest{
		StudentName:    req.StudentName,
		StudentEmail:   req.StudentEmail,
		Institution:    req.Institution,
		Degree:         req.Degree,
		GraduationYear: req.GraduationYear,
		CGPA:           req.CGPA,
		RegNumber:      req.RegNumber,
		Honours:        req.Honours,
		StateOfOrigin:  req.StateOfOrigin,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	jsonx.WriteJSON(w, http.StatusCreated, issueResponse{
		Digest:       result.Digest,
		LedgerStored: result.LedgerStored,
		Record:       result.Credential,
	})
}

type verifyRequest struct {
	Digest string `json:"hash"`
}

func (h *CredentialHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.Digest)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonx.WriteJSON(w, http.StatusOK, result)
}

// handleList returns issued credentials. Admins and issuers see full records;
// plain users get the restricted projection.
func (h *CredentialHandler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.credentials.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	actor := middleware.GetIdentity(r.Context())
	if actor.Role == identitymodels.RoleAdmin || actor.Role == identitymodels.RoleIssuer {
		jsonx.WriteJSON(w, http.StatusOK, map[string]any{"certificates": records})
		return
	}

	summaries := make([]models.Summary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.Summary())
	}
	jsonx.WriteJSON(w, http.StatusOK, map[string]any{"certificates": summaries})
}
