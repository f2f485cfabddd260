package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/models"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrInvalidPair          = errors.New("messages are exchanged between a vendor and a creator")
	ErrBlocked              = errors.New("messaging is blocked between these users")
	ErrEmptyMessage         = errors.New("message body is required")
)

const snippetLen = 120

// InboxService owns conversations, messages and notifications, and announces
// every change on the live channel.
type InboxService struct {
	db         *gorm.DB
	moderation *ModerationService
	publisher  Publisher
	logger     *slog.Logger
}

func NewInboxService(db *gorm.DB, moderation *ModerationService, publisher Publisher, logger *slog.Logger) *InboxService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxService{
		db:         db,
		moderation: moderation,
		publisher:  publisher,
		logger:     logger.With("component", "inbox"),
	}
}

// SendMessage appends a message to the conversation between sender and
// recipient, creating the conversation when the pair has none open.
func (s *InboxService) SendMessage(ctx context.Context, senderID uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.moderation.ScreenMessage(body); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var sender, recipient models.User
	if err := db.First(&sender, "id = ?", senderID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	if err := db.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	vendor, creator, err := pair(&sender, &recipient)
	if err != nil {
		return nil, err
	}
	blocked, err := s.moderation.Blocked(ctx, sender.ID, recipient.ID)
	if err != nil {
		return nil, fmt.Errorf("check blocks: %w", err)
	}
	if blocked {
		return nil, ErrBlocked
	}

	now := time.Now().UTC()
	var conv models.Conversation
	var msg models.Message
	err = db.Transaction(func(tx *gorm.DB) error {
		// A deleted conversation stays deleted; the pair starts a new one.
		err := tx.Where("vendor_id = ? AND creator_id = ?", vendor.ID, creator.ID).
			First(&conv).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			conv = models.Conversation{
				VendorID:    vendor.ID,
				CreatorID:   creator.ID,
				CreatorRole: creator.Role,
			}
		case err != nil:
			return err
		}

		conv.LastSenderID = sender.ID
		conv.LastSnippet = snippet(body)
		conv.LastMessageAt = now
		conv.ReadByVendor = sender.ID == vendor.ID
		conv.ReadByCreator = sender.ID == creator.ID
		if err := tx.Save(&conv).Error; err != nil {
			return err
		}

		msg = models.Message{ConversationID: conv.ID, SenderID: sender.ID, Body: body, CreatedAt: now}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	item := conversationItem(&conv, &sender)
	s.publish(ctx, recipient.ID, dto.LiveEvent{
		Kind:    unread.ItemArrived,
		Stream:  unread.Messages,
		ID:      item.ID,
		ActorID: sender.ID.String(),
		Item:    &item,
	})

	return &dto.SendMessageResponse{ConversationID: conv.ID, MessageID: msg.ID}, nil
}

// pair orders two users as (vendor, creator).
func pair(a, b *models.User) (*models.User, *models.User, error) {
	ra, rb := role.Role(a.Role), role.Role(b.Role)
	switch {
	case ra == role.Vendor && rb.Creator():
		return a, b, nil
	case rb == role.Vendor && ra.Creator():
		return b, a, nil
	default:
		return nil, nil, ErrInvalidPair
	}
}

func snippet(body string) string {
	if utf8.RuneCountInString(body) <= snippetLen {
		return body
	}
	r := []rune(body)
	return string(r[:snippetLen]) + "…"
}

// Unread lists the user's unread items of stream, most recent first.
func (s *InboxService) Unread(ctx context.Context, userID uuid.UUID, stream unread.Stream) ([]dto.UnreadItem, error) {
	db := s.db.WithContext(ctx)
	switch stream {
	case unread.Messages:
		var convs []models.Conversation
		err := db.Scopes(session.ForParticipant(userID)).
			Where("(vendor_id = ? AND read_by_vendor = ?) OR (creator_id = ? AND read_by_creator = ?)", userID, false, userID, false).
			Order("last_message_at DESC").
			Find(&convs).Error
		if err != nil {
			return nil, fmt.Errorf("list unread conversations: %w", err)
		}
		senders, err := s.usersByID(db, convs)
		if err != nil {
			return nil, err
		}
		items := make([]dto.UnreadItem, 0, len(convs))
		for i := range convs {
			items = append(items, conversationItem(&convs[i], senders[convs[i].LastSenderID]))
		}
		return items, nil

	case unread.Notifications:
		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return nil, ErrUserNotFound
		}
		var notes []models.Notification
		err := db.Scopes(session.ForOwner(userID)).
			Where("is_read = ?", false).
			Order("created_at DESC").
			Find(&notes).Error
		if err != nil {
			return nil, fmt.Errorf("list unread notifications: %w", err)
		}
		items := make([]dto.UnreadItem, 0, len(notes))
		for i := range notes {
			items = append(items, notificationItem(&notes[i], role.Role(user.Role)))
		}
		return items, nil

	default:
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
}

func (s *InboxService) usersByID(db *gorm.DB, convs []models.Conversation) (map[uuid.UUID]*models.User, error) {
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.LastSenderID)
	}
	out := make(map[uuid.UUID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func conversationFlags(c *models.Conversation) unread.ReadFlags {
	return unread.ReadFlags{Vendor: c.ReadByVendor}.Set(role.Role(c.CreatorRole), c.ReadByCreator)
}

func conversationItem(c *models.Conversation, sender *models.User) dto.UnreadItem {
	item := dto.UnreadItem{
		ID:        unread.ID(c.ID.String()),
		SenderID:  unread.ID(c.LastSenderID.String()),
		Snippet:   c.LastSnippet,
		At:        c.LastMessageAt,
		ReadFlags: conversationFlags(c),
	}
	if sender != nil {
		item.SenderName = displayName(sender)
	}
	return item
}

func notificationItem(n *models.Notification, owner role.Role) dto.UnreadItem {
	item := dto.UnreadItem{
		ID:        unread.ID(n.ID.String()),
		Snippet:   n.Title,
		At:        n.CreatedAt,
		ReadFlags: unread.ReadFlags{}.Set(owner, n.Read),
	}
	if n.ActorID != nil {
		item.SenderID = unread.ID(n.ActorID.String())
	}
	return item
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return strings.SplitN(u.Email, "@", 2)[0]
}

func (s *InboxService) participantConversation(db *gorm.DB, userID, convID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := db.First(&conv, "id = ?", convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.Participant(userID) {
		return nil, ErrNotParticipant
	}
	return &conv, nil
}

// MarkConversationRead marks the user's side of the conversation read.
func (s *InboxService) MarkConversationRead(ctx context.Context, userID, convID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	conv, err := s.participantConversation(db, userID, convID)
	if err != nil {
		return err
	}

	column := "read_by_creator"
	if conv.VendorID == userID {
		column = "read_by_vendor"
		conv.ReadByVendor = true
	} else {
		conv.ReadByCreator = true
	}
	if err := db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Update(column, true).Error; err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}

	flags := conversationFlags(conv)
	s.publish(ctx, userID, dto.LiveEvent{
		Kind:    unread.ItemRead,
		Stream:  unread.Messages,
		ID:      unread.ID(conv.ID.String()),
		ActorID: userID.String(),
		Read:    &flags,
	})
	return nil
}

// DeleteConversation removes the conversation for both participants.
func (s *InboxService) DeleteConversation(ctx context.Context, userID, convID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	conv, err := s.participantConversation(db, userID, convID)
	if err != nil {
		return err
	}
	if err := db.Delete(conv).Error; err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	ev := dto.LiveEvent{
		Kind:    unread.ItemDeleted,
		Stream:  unread.Messages,
		ID:      unread.ID(conv.ID.String()),
		ActorID: userID.String(),
	}
	s.publish(ctx, conv.VendorID, ev)
	s.publish(ctx, conv.CreatorID, ev)
	return nil
}

func (s *InboxService) ownedNotification(db *gorm.DB, userID, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := db.Scopes(session.ForOwner(userID)).First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	return &n, err
}

func (s *InboxService) MarkNotificationRead(ctx context.Context, userID uuid.UUID, owner role.Role, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	n, err := s.ownedNotification(db, userID, id)
	if err != nil {
		return err
	}
	if err := db.Model(n).Update("is_read", true).Error; err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	flags := unread.ReadFlags{}.Set(owner, true)
	s.publish(ctx, userID, dto.LiveEvent{
		Kind:   unread.ItemRead,
		Stream: unread.Notifications,
		ID:     unread.ID(n.ID.String()),
		Read:   &flags,
	})
	return nil
}

func (s *InboxService) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	n, err := s.ownedNotification(db, userID, id)
	if err != nil {
		return err
	}
	if err := db.Delete(n).Error; err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	s.publish(ctx, userID, dto.LiveEvent{
		Kind:   unread.ItemDeleted,
		Stream: unread.Notifications,
		ID:     unread.ID(n.ID.String()),
	})
	return nil
}

// Notify implements Notifier.
func (s *InboxService) Notify(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, kind, title string) error {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	n := models.Notification{UserID: userID, ActorID: actorID, Kind: kind, Title: title}
	if err := db.Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	item := notificationItem(&n, role.Role(user.Role))
	ev := dto.LiveEvent{
		Kind:   unread.ItemArrived,
		Stream: unread.Notifications,
		ID:     item.ID,
		Item:   &item,
	}
	if actorID != nil {
		ev.ActorID = actorID.String()
	}
	s.publish(ctx, userID, ev)
	return nil
}

// publish failures are logged; the write they announce has already succeeded
// and clients converge on their next snapshot.
func (s *InboxService) publish(ctx context.Context, userID uuid.UUID, ev dto.LiveEvent) {
	if err := s.publisher.Publish(ctx, userID.String(), ev); err != nil {
		s.logger.Error("live publish failed",
			"error", err,
			"user_id", userID.String(),
			"kind", string(ev.Kind),
			"stream", string(ev.Stream),
		)
	}
}
