// Package onboarding derives profile-wizard progress from a profile aggregate
// and drives the wizard through its steps.
package onboarding

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
)

// StepCount is the fixed number of wizard steps for every role.
const StepCount = 5

// StepID identifies a wizard step independently of its position.
type StepID string

const (
	StepPersonal   StepID = "personal"
	StepSocial     StepID = "social"
	StepCategories StepID = "categories"
	StepPortfolio  StepID = "portfolio"
	StepPayment    StepID = "payment"
)

// Step is one entry of a role's wizard. Form names the write that completes
// the step.
type Step struct {
	ID       StepID
	Title    string
	Form     string
	Complete Predicate
}

// Flow is the ordered step sequence of one role.
type Flow struct {
	Role  role.Role
	Steps [StepCount]Step
}

func step(id StepID, title string, complete Predicate) Step {
	return Step{ID: id, Title: title, Form: "/api/profile/" + string(id), Complete: complete}
}

// FlowFor returns the wizard of an onboarding role.
func FlowFor(r role.Role) (Flow, error) {
	switch r {
	case role.Influencer:
		return Flow{Role: r, Steps: [StepCount]Step{
			step(StepPersonal, "Personal details", influencerPersonalComplete),
			step(StepSocial, "Social accounts", socialComplete),
			step(StepCategories, "Niches", categoriesComplete),
			step(StepPortfolio, "Portfolio", portfolioComplete),
			step(StepPayment, "Payment details", paymentComplete),
		}}, nil
	case role.Vendor:
		return Flow{Role: r, Steps: [StepCount]Step{
			step(StepPersonal, "Brand details", vendorPersonalComplete),
			step(StepCategories, "Industries", categoriesComplete),
			step(StepSocial, "Brand channels", socialComplete),
			step(StepPortfolio, "Brand assets", portfolioComplete),
			step(StepPayment, "Billing details", paymentComplete),
		}}, nil
	case role.Agency:
		return Flow{Role: r, Steps: [StepCount]Step{
			step(StepPersonal, "Agency details", agencyPersonalComplete),
			step(StepPortfolio, "Showcase", portfolioComplete),
			step(StepSocial, "Managed channels", socialComplete),
			step(StepCategories, "Specialities", categoriesComplete),
			step(StepPayment, "Payout details", paymentComplete),
		}}, nil
	default:
		return Flow{}, fmt.Errorf("%w: %q has no onboarding flow", role.ErrUnknownRole, r)
	}
}

// Index returns the position of a step, or -1.
func (f Flow) Index(id StepID) int {
	for i, s := range f.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}
