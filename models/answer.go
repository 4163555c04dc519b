package models

// StructuredAnswer is the response contract of a query.
// Confidence is only set for HR requesters.
type StructuredAnswer struct {
	Answer             string   `json:"answer"`
	SuggestedFollowUps []string `json:"suggested_follow_ups"`
	NextSteps          string   `json:"next_steps"`
	Confidence         *int     `json:"confidence,omitempty"`
}

// MaxFollowUps caps SuggestedFollowUps.
const MaxFollowUps = 2
