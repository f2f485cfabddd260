// Package unread keeps the dashboard's unread messages and notifications
// consistent across the initial snapshot fetch and the live event stream.
package unread

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
)

type Stream string

const (
	Messages      Stream = "messages"
	Notifications Stream = "notifications"
)

// ReadFlags records which side of an item has read it.
type ReadFlags struct {
	Vendor     bool `json:"read_by_vendor"`
	Influencer bool `json:"read_by_influencer"`
	Agency     bool `json:"read_by_agency"`
}

// ReadBy reports whether the flags mark the item read for a viewer of role r.
func (f ReadFlags) ReadBy(r role.Role) bool {
	switch r {
	case role.Vendor:
		return f.Vendor
	case role.Influencer:
		return f.Influencer
	case role.Agency:
		return f.Agency
	default:
		return false
	}
}

// Set returns a copy with the flag of role r set to read.
func (f ReadFlags) Set(r role.Role, read bool) ReadFlags {
	switch r {
	case role.Vendor:
		f.Vendor = read
	case role.Influencer:
		f.Influencer = read
	case role.Agency:
		f.Agency = read
	}
	return f
}

// Entry is one unread item. For messages the identifier is the conversation,
// so a conversation contributes at most one entry.
type Entry struct {
	ID         string    `json:"id"`
	Stream     Stream    `json:"stream"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Snippet    string    `json:"snippet"`
	At         time.Time `json:"at"`
	Read       ReadFlags `json:"read"`
}

// Viewer is the account the collections are kept for.
type Viewer struct {
	ID   string
	Role role.Role
}

type EventKind string

const (
	ItemArrived EventKind = "item.arrived"
	ItemRead    EventKind = "item.read"
	ItemDeleted EventKind = "item.deleted"
)

// Event is a live change to one item.
type Event struct {
	Kind  EventKind
	ID    string
	Entry Entry
	Read  ReadFlags
}

// priority orders events processed in the same batch: deletions, then reads,
// then arrivals, so a batch never resurrects an item it also removes.
func (k EventKind) priority() int {
	switch k {
	case ItemDeleted:
		return 0
	case ItemRead:
		return 1
	default:
		return 2
	}
}
