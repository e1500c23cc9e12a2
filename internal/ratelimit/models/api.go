package models

// Caller-visible reasons.
const (
	ReasonSlowDown         = "Please slow down"
	ReasonMethodNotAllowed = "Method not allowed"
)

// CheckRequest is the attacker-controlled body of a rate-limit check.
// Every field is optional; a missing or malformed body decodes to the zero value.
type CheckRequest struct {
	Action string `json:"action"`
}

// CheckResponse is the only body shape the check endpoint returns.
type CheckResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
