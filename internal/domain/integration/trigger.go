package integration

import "strings"

// ---------------------------------------------------------------------------
// Diagnostic Trigger Types
// ---------------------------------------------------------------------------

// TriggerAction names an operator-initiated diagnostic action
type TriggerAction string

const (
	// TriggerActionGetToken fetches a bearer credential from the token endpoint
	TriggerActionGetToken TriggerAction = "get-token"
	// TriggerActionCallOrder sends a sample bill batch to a remote sync endpoint
	TriggerActionCallOrder TriggerAction = "call-order"
)

// IsValid returns true if the action is supported
func (a TriggerAction) IsValid() bool {
	switch a {
	case TriggerActionGetToken, TriggerActionCallOrder:
		return true
	default:
		return false
	}
}

// String returns the string representation of TriggerAction
func (a TriggerAction) String() string {
	return string(a)
}

// ParseTriggerAction normalizes user input. Unknown values are returned as-is
// so that the task records what was asked for.
func ParseTriggerAction(s string) TriggerAction {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TriggerActionGetToken
	}
	return TriggerAction(s)
}

// TriggerRequest describes one diagnostic run
type TriggerRequest struct {
	// Action selects what to run
	Action TriggerAction
	// DryRun builds the request without contacting any remote system
	DryRun bool
	// Target overrides the configured outbound RPC target for call-order
	Target string
}
