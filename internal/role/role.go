// Package role names the account roles of the marketplace.
package role

import (
	"errors"
	"strings"
)

type Role string

const (
	Influencer Role = "influencer"
	Vendor     Role = "vendor"
	Agency     Role = "agency"
	Admin      Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// Parse accepts any casing and surrounding whitespace.
func Parse(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Influencer, Vendor, Agency, Admin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

// Onboards reports whether accounts of this role go through the profile wizard.
func (r Role) Onboards() bool {
	return r == Influencer || r == Vendor || r == Agency
}

// Creator reports whether the role sits on the talent side of a conversation.
func (r Role) Creator() bool {
	return r == Influencer || r == Agency
}

func (r Role) String() string { return string(r) }
