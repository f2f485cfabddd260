package dto

import "github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"

// The profile aggregate is served as onboarding.Record; section writes take
// the section's own shape.

type SocialRequest struct {
	Accounts []onboarding.SocialAccount `json:"accounts"`
}

type CategoriesRequest struct {
	Categories []onboarding.Category `json:"categories"`
}

type StepStatus struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Form     string `json:"form"`
	Complete bool   `json:"complete"`
}

// OnboardingResponse is the server-derived wizard position.
type OnboardingResponse struct {
	Role     string       `json:"role"`
	Status   string       `json:"status"`
	Steps    []StepStatus `json:"steps"`
	Cursor   int          `json:"cursor"`
	Finished bool         `json:"finished"`
}
