package onboarding

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Status is the account review state reported alongside the profile aggregate.
type Status string

const (
	StatusOnboarding      Status = "onboarding"
	StatusApprovalPending Status = "approval_pending"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Record is the five-section profile aggregate. Every section is optional on
// the server; a missing section is its zero value.
type Record struct {
	Status     Status          `json:"status"`
	Personal   Personal        `json:"personal"`
	Social     []SocialAccount `json:"social"`
	Categories []Category      `json:"categories"`
	Portfolio  Portfolio       `json:"portfolio"`
	Payment    Payment         `json:"payment"`
}

type Personal struct {
	PhotoURL    string `json:"photo_url"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Website     string `json:"website"`
	AddressLine string `json:"address_line"`
	Country     string `json:"country"`
	State       string `json:"state"`
	Bio         string `json:"bio"`
}

type SocialAccount struct {
	Provider  string `json:"provider"`
	Handle    string `json:"handle"`
	Followers int64  `json:"followers"`
}

// Category is a selected taxonomy leaf grouped under its parent node.
type Category struct {
	Parent string `json:"parent"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
}

type Portfolio struct {
	URL       string   `json:"url"`
	Files     []string `json:"files"`
	Languages []string `json:"languages"`
}

type Payment struct {
	AccountHolder string          `json:"account_holder"`
	AccountNumber string          `json:"account_number"`
	BankName      string          `json:"bank_name"`
	RoutingCode   string          `json:"routing_code"`
	Methods       []PaymentMethod `json:"methods"`
}

type PaymentMethod struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

// DecodeRecord decodes a profile aggregate one section at a time. A section
// whose shape does not match decodes to empty and is reported to logger; only
// a body that is not a JSON object at all is an error.
func DecodeRecord(data []byte, logger *slog.Logger) (Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode profile aggregate: %w", err)
	}

	var rec Record
	decodeSection(raw, "status", &rec.Status, logger)
	decodeSection(raw, "personal", &rec.Personal, logger)
	decodeSection(raw, "social", &rec.Social, logger)
	decodeSection(raw, "categories", &rec.Categories, logger)
	decodeSection(raw, "portfolio", &rec.Portfolio, logger)
	decodeSection(raw, "payment", &rec.Payment, logger)
	return rec, nil
}

func decodeSection[T any](raw map[string]json.RawMessage, key string, dst *T, logger *slog.Logger) {
	msg, ok := raw[key]
	if !ok || len(msg) == 0 || string(msg) == "null" {
		return
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		logger.Warn("profile section shape mismatch, treating as empty", "section", key, "error", err)
		return
	}
	*dst = v
}
