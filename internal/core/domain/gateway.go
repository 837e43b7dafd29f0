package domain

// AuthDecision is the outcome of a bank authorization call.
type AuthDecision string

const (
	AuthApproved AuthDecision = "APPROVED"
	AuthDeclined AuthDecision = "DECLINED"
	AuthTimeout  AuthDecision = "TIMEOUT"
)
