package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
)

// The profile is stored as one table per onboarding section, each keyed by
// the owning user. A missing row is an empty section.

type ProfilePersonal struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	PhotoURL    string    `gorm:"size:500" json:"photo_url"`
	DisplayName string    `gorm:"size:120" json:"display_name"`
	Gender      string    `gorm:"size:30" json:"gender"`
	DateOfBirth string    `gorm:"size:10" json:"date_of_birth"`
	Website     string    `gorm:"size:500" json:"website"`
	AddressLine string    `gorm:"size:255" json:"address_line"`
	Country     string    `gorm:"size:80" json:"country"`
	State       string    `gorm:"size:80" json:"state"`
	Bio         string    `gorm:"type:text" json:"bio"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SocialAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Provider  string    `gorm:"size:30;not null" json:"provider"`
	Handle    string    `gorm:"size:120;not null" json:"handle"`
	Followers int64     `json:"followers"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *SocialAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

type ProfileCategory struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Parent string    `gorm:"size:80" json:"parent"`
	Slug   string    `gorm:"size:80;not null" json:"slug"`
	Name   string    `gorm:"size:120" json:"name"`
}

func (c *ProfileCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type Portfolio struct {
	UserID    uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	URL       string                      `gorm:"size:500" json:"url"`
	Files     datatypes.JSONSlice[string] `json:"files"`
	Languages datatypes.JSONSlice[string] `json:"languages"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

type PaymentDetails struct {
	UserID        uuid.UUID                                     `gorm:"type:uuid;primaryKey" json:"-"`
	AccountHolder string                                        `gorm:"size:120" json:"account_holder"`
	AccountNumber string                                        `gorm:"size:60" json:"account_number"`
	BankName      string                                        `gorm:"size:120" json:"bank_name"`
	RoutingCode   string                                        `gorm:"size:30" json:"routing_code"`
	Methods       datatypes.JSONSlice[onboarding.PaymentMethod] `json:"methods"`
	UpdatedAt     time.Time                                     `json:"updated_at"`
}

func (PaymentDetails) TableName() string {
	return "payment_details"
}
