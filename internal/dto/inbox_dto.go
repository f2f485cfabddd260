package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
)

// UnreadItem is one entry of an unread snapshot or live event. The read
// flags are inlined as read_by_vendor, read_by_influencer and read_by_agency.
type UnreadItem struct {
	ID         unread.ID `json:"id"`
	SenderID   unread.ID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Snippet    string    `json:"snippet"`
	At         time.Time `json:"at"`
	unread.ReadFlags
}

// Entry converts the item for a reconciler of stream.
func (i UnreadItem) Entry(stream unread.Stream) unread.Entry {
	return unread.Entry{
		ID:         unread.NormalizeID(i.ID),
		Stream:     stream,
		SenderID:   unread.NormalizeID(i.SenderID),
		SenderName: i.SenderName,
		Snippet:    i.Snippet,
		At:         i.At,
		Read:       i.ReadFlags,
	}
}

type UnreadListResponse struct {
	Stream unread.Stream `json:"stream"`
	Items  []UnreadItem  `json:"items"`
	Count  int           `json:"count"`
}

type SendMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Body        string    `json:"body"`
}

type SendMessageResponse struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

// LiveEvent is the frame pushed on the live channel.
type LiveEvent struct {
	Kind    unread.EventKind  `json:"kind"`
	Stream  unread.Stream     `json:"stream"`
	ID      unread.ID         `json:"id"`
	ActorID string            `json:"actor_id,omitempty"`
	Item    *UnreadItem       `json:"item,omitempty"`
	Read    *unread.ReadFlags `json:"read,omitempty"`
}

// Event converts the frame into a reconciler event.
func (e LiveEvent) Event() unread.Event {
	ev := unread.Event{Kind: e.Kind, ID: unread.NormalizeID(e.ID)}
	if e.Item != nil {
		ev.Entry = e.Item.Entry(e.Stream)
		if ev.ID == "" {
			ev.ID = ev.Entry.ID
		}
	}
	if e.Read != nil {
		ev.Read = *e.Read
	}
	return ev
}
