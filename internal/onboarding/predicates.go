package onboarding

import (
	"net/url"
	"strings"
)

// Predicate reports whether a step's section is complete for a record.
type Predicate func(Record) bool

// The personal predicates are "any field" checks, not "all fields".

func influencerPersonalComplete(r Record) bool {
	p := r.Personal
	return anyFilled(p.PhotoURL, p.Gender, p.DateOfBirth, p.AddressLine, p.Country, p.State, p.Bio)
}

func vendorPersonalComplete(r Record) bool {
	p := r.Personal
	return anyFilled(p.PhotoURL, p.DisplayName, p.Website, p.AddressLine, p.Country, p.State, p.Bio)
}

func agencyPersonalComplete(r Record) bool {
	p := r.Personal
	return anyFilled(p.PhotoURL, p.DisplayName, p.AddressLine, p.Country, p.State, p.Bio)
}

func socialComplete(r Record) bool {
	return len(r.Social) > 0
}

func categoriesComplete(r Record) bool {
	return len(r.Categories) > 0
}

func portfolioComplete(r Record) bool {
	if validURL(r.Portfolio.URL) {
		return true
	}
	for _, f := range r.Portfolio.Files {
		if filled(f) {
			return true
		}
	}
	return false
}

func paymentComplete(r Record) bool {
	p := r.Payment
	if anyFilled(p.AccountHolder, p.AccountNumber, p.BankName, p.RoutingCode) {
		return true
	}
	for _, m := range p.Methods {
		if filled(m.Name) && filled(m.Details) {
			return true
		}
	}
	return false
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func anyFilled(fields ...string) bool {
	for _, f := range fields {
		if filled(f) {
			return true
		}
	}
	return false
}

// validURL accepts absolute http(s) URLs with a host.
func validURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
