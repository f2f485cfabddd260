package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the thread between a vendor and a creator (influencer or
// agency). It is the unit of unread tracking for messages.
type Conversation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VendorID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,where:deleted_at IS NULL" json:"vendor_id"`
	CreatorID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,where:deleted_at IS NULL;index" json:"creator_id"`
	CreatorRole   string         `gorm:"size:20;not null" json:"creator_role"`
	ReadByVendor  bool           `gorm:"not null" json:"read_by_vendor"`
	ReadByCreator bool           `gorm:"not null" json:"read_by_creator"`
	LastSenderID  uuid.UUID      `gorm:"type:uuid" json:"last_sender_id"`
	LastSnippet   string         `gorm:"size:200" json:"last_snippet"`
	LastMessageAt time.Time      `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Vendor        User           `gorm:"foreignKey:VendorID" json:"-"`
	Creator       User           `gorm:"foreignKey:CreatorID" json:"-"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Participant reports whether userID is one side of the conversation.
func (c *Conversation) Participant(userID uuid.UUID) bool {
	return c.VendorID == userID || c.CreatorID == userID
}

// Counterpart returns the other side of the conversation.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.VendorID == userID {
		return c.CreatorID
	}
	return c.VendorID
}

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// Notification is a system or account event addressed to one user.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ActorID   *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Kind      string         `gorm:"size:50;not null" json:"kind"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	Read      bool           `gorm:"column:is_read;not null;index" json:"read"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
