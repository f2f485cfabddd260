package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/models"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidReport  = errors.New("invalid report")
	ErrSelfReport     = errors.New("cannot report yourself")
	ErrAlreadyBlocked = errors.New("user already blocked")
	ErrSelfBlock      = errors.New("cannot block yourself")
)

// Reasons a message is refused.
const (
	ReasonLanguage    = "inappropriate_language"
	ReasonURL         = "url_not_allowed"
	ReasonContactInfo = "contact_info_not_allowed"
	ReasonSpam        = "spam_detected"
	ReasonCaps        = "excessive_caps"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"spam", "scam", "scammer", "phishing", "malware",
}

var rejectionMessages = map[string]string{
	ReasonLanguage:    "Messages cannot contain inappropriate language.",
	ReasonURL:         "Links cannot be sent in messages. Add them to your portfolio instead.",
	ReasonContactInfo: "Keep email addresses and phone numbers out of messages.",
	ReasonSpam:        "This message looks like spam.",
	ReasonCaps:        "Please avoid writing in capital letters.",
}

var (
	reportTargets  = mapset.NewSet("user", "conversation", "message")
	reportOutcomes = mapset.NewSet("reviewed", "actioned", "dismissed")
)

// ContentRejectedError is returned when a message fails screening.
type ContentRejectedError struct {
	Reason  string
	Message string
}

func (e *ContentRejectedError) Error() string {
	return "content rejected: " + e.Reason
}

type contentRule struct {
	reason string
	match  func(string) bool
}

// ModerationService screens user text and keeps reports and blocks. Its
// rules are fixed at construction, so it is safe for concurrent use.
type ModerationService struct {
	db        *gorm.DB
	profanity *regexp.Regexp
	rules     []contentRule
}

func NewModerationService(db *gorm.DB) *ModerationService {
	words := make([]string, len(BannedWords))
	for i, w := range BannedWords {
		words[i] = regexp.QuoteMeta(w)
	}
	profanity := regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
	url := regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	email := regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phone := regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	shouting := regexp.MustCompile(`[A-Z]{5,}`)

	return &ModerationService{
		db:        db,
		profanity: profanity,
		rules: []contentRule{
			{ReasonLanguage, profanity.MatchString},
			{ReasonURL, url.MatchString},
			{ReasonContactInfo, func(s string) bool { return email.MatchString(s) || phone.MatchString(s) }},
			{ReasonSpam, func(s string) bool { return repeatedRun(s, 4) }},
			{ReasonCaps, func(s string) bool { return len(shouting.FindAllString(s, 3)) > 2 }},
		},
	}
}

// repeatedRun reports whether a letter, '!', '?' or '.' repeats n times in a
// row, ignoring case.
func repeatedRun(s string, n int) bool {
	var prev rune
	count := 0
	for _, r := range strings.ToLower(s) {
		if r == prev {
			count++
		} else {
			prev, count = r, 1
		}
		if count < n {
			continue
		}
		if (r >= 'a' && r <= 'z') || r == '!' || r == '?' || r == '.' {
			return true
		}
	}
	return false
}

// ScreenMessage returns a *ContentRejectedError for the first rule body
// breaks, or nil.
func (s *ModerationService) ScreenMessage(body string) error {
	if body == "" {
		return nil
	}
	for _, rule := range s.rules {
		if rule.match(body) {
			return &ContentRejectedError{Reason: rule.reason, Message: RejectionMessage(rule.reason)}
		}
	}
	return nil
}

func (s *ModerationService) ContainsProfanity(text string) bool {
	return s.profanity.MatchString(text)
}

func RejectionMessage(reason string) string {
	if msg, ok := rejectionMessages[reason]; ok {
		return msg
	}
	return "This message does not meet our content guidelines."
}

func (s *ModerationService) CreateReport(ctx context.Context, reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	target := strings.ToLower(strings.TrimSpace(req.ContentType))
	contentID := strings.TrimSpace(req.ContentID)
	reason := strings.TrimSpace(req.Reason)
	switch {
	case !reportTargets.Contains(target):
		return nil, fmt.Errorf("%w: content_type must be user, conversation, or message", ErrInvalidReport)
	case reason == "":
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidReport)
	case contentID == "":
		return nil, fmt.Errorf("%w: content_id is required", ErrInvalidReport)
	case target == "user" && strings.EqualFold(contentID, reporterID.String()):
		return nil, ErrSelfReport
	}

	report := models.Report{
		ReporterID:  reporterID,
		ContentType: target,
		ContentID:   contentID,
		Reason:      reason,
		Status:      "pending",
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

// ListReports pages through reports, newest first. An empty status lists all.
func (s *ModerationService) ListReports(ctx context.Context, status string, limit, offset int) ([]models.Report, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	var reports []models.Report
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}

func (s *ModerationService) ActionReport(ctx context.Context, reportID uuid.UUID, req *dto.ActionReportRequest) error {
	if !reportOutcomes.Contains(req.Status) {
		return fmt.Errorf("%w: status must be reviewed, actioned, or dismissed", ErrInvalidReport)
	}

	result := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": strings.TrimSpace(req.AdminNote),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (s *ModerationService) BlockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	db := s.db.WithContext(ctx)
	var existing models.Block
	err := db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error
	switch {
	case err == nil:
		return ErrAlreadyBlocked
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return db.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (s *ModerationService) UnblockUser(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

// Blocked reports whether either user has blocked the other.
func (s *ModerationService) Blocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}
