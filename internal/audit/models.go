package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Device    string    `json:"device,omitempty"`
}

// Action identifies what happened.
type Action string

const (
	ActionUserCreated        Action = "user_created"
	ActionLoginSucceeded     Action = "login_succeeded"
	ActionLoginFailed        Action = "login_failed"
	ActionRoleChanged        Action = "role_changed"
	ActionUserActivated      Action = "user_activated"
	ActionUserDeactivated    Action = "user_deactivated"
	ActionCredentialIssued   Action = "credential_issued"
	ActionCredentialVerified Action = "credential_verified"
)

// Outcome records whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)
