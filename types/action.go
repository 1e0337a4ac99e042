package types

// ActionKind names one primitive automation step.
type ActionKind string

// Recognized action kinds. Anything else is dropped during validation.
const (
	ActionClick     ActionKind = "click"
	ActionType      ActionKind = "type"
	ActionPressKeys ActionKind = "press_keys"
	ActionScroll    ActionKind = "scroll"
	ActionWait      ActionKind = "wait"
)

// Valid reports whether k is one of the recognized kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionClick, ActionType, ActionPressKeys, ActionScroll, ActionWait:
		return true
	}
	return false
}

// RawActionCandidate is a structural value exactly as decoded from model output.
// It may be a map, a string, a number or anything else JSON can express.
type RawActionCandidate = any

// ActionRecord is the canonical, validated action. Its JSON form is the payload
// framed into execute_action calls to the executor.
type ActionRecord struct {
	Action     ActionKind     `json:"action"`
	Params     map[string]any `json:"params"`
	Confidence float64        `json:"confidence"`
}

// ValidationResult holds the accepted actions in model order and the number of
// candidates that were dropped.
type ValidationResult struct {
	Actions []ActionRecord `json:"actions"`
	Dropped int            `json:"dropped"`
}

// Turn is one prior conversation turn forwarded to the provider.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
