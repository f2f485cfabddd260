package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/models"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoOnboarding    = errors.New("role has no onboarding flow")
	ErrInvalidStatus   = errors.New("status must be approved, rejected, or onboarding")
	ErrProfileRejected = errors.New("profile contains inappropriate language")
)

// ProfileService stores the five onboarding sections and moves an account
// into review once every section but payment is complete.
type ProfileService struct {
	db         *gorm.DB
	moderation *ModerationService
	notifier   Notifier
	logger     *slog.Logger
}

func NewProfileService(db *gorm.DB, moderation *ModerationService, notifier Notifier, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		db:         db,
		moderation: moderation,
		notifier:   notifier,
		logger:     logger.With("component", "profile"),
	}
}

// Record assembles the profile aggregate of a user.
func (s *ProfileService) Record(ctx context.Context, userID uuid.UUID) (onboarding.Record, *models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return onboarding.Record{}, nil, ErrUserNotFound
	}
	rec := onboarding.Record{Status: onboarding.Status(user.Status)}

	var personal models.ProfilePersonal
	if err := firstOrEmpty(db.Scopes(session.ForOwner(userID)), &personal); err != nil {
		return rec, nil, err
	}
	rec.Personal = onboarding.Personal{
		PhotoURL:    personal.PhotoURL,
		DisplayName: personal.DisplayName,
		Gender:      personal.Gender,
		DateOfBirth: personal.DateOfBirth,
		Website:     personal.Website,
		AddressLine: personal.AddressLine,
		Country:     personal.Country,
		State:       personal.State,
		Bio:         personal.Bio,
	}

	var social []models.SocialAccount
	if err := db.Scopes(session.ForOwner(userID)).Order("created_at").Find(&social).Error; err != nil {
		return rec, nil, fmt.Errorf("load social accounts: %w", err)
	}
	for _, a := range social {
		rec.Social = append(rec.Social, onboarding.SocialAccount{Provider: a.Provider, Handle: a.Handle, Followers: a.Followers})
	}

	var cats []models.ProfileCategory
	if err := db.Scopes(session.ForOwner(userID)).Order("parent, slug").Find(&cats).Error; err != nil {
		return rec, nil, fmt.Errorf("load categories: %w", err)
	}
	for _, c := range cats {
		rec.Categories = append(rec.Categories, onboarding.Category{Parent: c.Parent, Slug: c.Slug, Name: c.Name})
	}

	var portfolio models.Portfolio
	if err := firstOrEmpty(db.Scopes(session.ForOwner(userID)), &portfolio); err != nil {
		return rec, nil, err
	}
	rec.Portfolio = onboarding.Portfolio{URL: portfolio.URL, Files: portfolio.Files, Languages: portfolio.Languages}

	var payment models.PaymentDetails
	if err := firstOrEmpty(db.Scopes(session.ForOwner(userID)), &payment); err != nil {
		return rec, nil, err
	}
	rec.Payment = onboarding.Payment{
		AccountHolder: payment.AccountHolder,
		AccountNumber: payment.AccountNumber,
		BankName:      payment.BankName,
		RoutingCode:   payment.RoutingCode,
		Methods:       payment.Methods,
	}
	return rec, &user, nil
}

func firstOrEmpty(db *gorm.DB, dst interface{}) error {
	err := db.Take(dst).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load profile section: %w", err)
	}
	return nil
}

// Onboarding derives the wizard position the server sees for a user.
func (s *ProfileService) Onboarding(ctx context.Context, userID uuid.UUID) (*dto.OnboardingResponse, error) {
	rec, user, err := s.Record(ctx, userID)
	if err != nil {
		return nil, err
	}
	flow, err := onboarding.FlowFor(role.Role(user.Role))
	if err != nil {
		return nil, ErrNoOnboarding
	}

	vector, cursor := flow.Derive(rec)
	resp := &dto.OnboardingResponse{
		Role:     user.Role,
		Status:   user.Status,
		Steps:    make([]dto.StepStatus, 0, onboarding.StepCount),
		Cursor:   int(cursor),
		Finished: cursor.IsFinished(),
	}
	for i, st := range flow.Steps {
		resp.Steps = append(resp.Steps, dto.StepStatus{
			ID:       string(st.ID),
			Title:    st.Title,
			Form:     st.Form,
			Complete: vector[i],
		})
	}
	return resp, nil
}

func (s *ProfileService) SavePersonal(ctx context.Context, userID uuid.UUID, p onboarding.Personal) error {
	if s.moderation != nil && (s.moderation.ContainsProfanity(p.DisplayName) || s.moderation.ContainsProfanity(p.Bio)) {
		return ErrProfileRejected
	}
	row := models.ProfilePersonal{
		UserID:      userID,
		PhotoURL:    strings.TrimSpace(p.PhotoURL),
		DisplayName: strings.TrimSpace(p.DisplayName),
		Gender:      strings.TrimSpace(p.Gender),
		DateOfBirth: strings.TrimSpace(p.DateOfBirth),
		Website:     strings.TrimSpace(p.Website),
		AddressLine: strings.TrimSpace(p.AddressLine),
		Country:     strings.TrimSpace(p.Country),
		State:       strings.TrimSpace(p.State),
		Bio:         strings.TrimSpace(p.Bio),
	}
	return s.save(ctx, userID, onboarding.StepPersonal, func(tx *gorm.DB) error {
		if err := upsert(tx, &row); err != nil {
			return err
		}
		if row.DisplayName == "" {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("display_name", row.DisplayName).Error
	})
}

// SaveSocial replaces the user's social accounts. Entries without a provider
// or handle are dropped.
func (s *ProfileService) SaveSocial(ctx context.Context, userID uuid.UUID, accounts []onboarding.SocialAccount) error {
	rows := make([]models.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		provider, handle := strings.ToLower(strings.TrimSpace(a.Provider)), strings.TrimSpace(a.Handle)
		if provider == "" || handle == "" {
			continue
		}
		rows = append(rows, models.SocialAccount{UserID: userID, Provider: provider, Handle: handle, Followers: max(a.Followers, 0)})
	}
	return s.save(ctx, userID, onboarding.StepSocial, func(tx *gorm.DB) error {
		if err := tx.Scopes(session.ForOwner(userID)).Delete(&models.SocialAccount{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// SaveCategories replaces the user's selected categories.
func (s *ProfileService) SaveCategories(ctx context.Context, userID uuid.UUID, categories []onboarding.Category) error {
	seen := make(map[string]bool, len(categories))
	rows := make([]models.ProfileCategory, 0, len(categories))
	for _, c := range categories {
		slug := strings.ToLower(strings.TrimSpace(c.Slug))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		rows = append(rows, models.ProfileCategory{
			UserID: userID,
			Parent: strings.TrimSpace(c.Parent),
			Slug:   slug,
			Name:   strings.TrimSpace(c.Name),
		})
	}
	return s.save(ctx, userID, onboarding.StepCategories, func(tx *gorm.DB) error {
		if err := tx.Scopes(session.ForOwner(userID)).Delete(&models.ProfileCategory{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (s *ProfileService) SavePortfolio(ctx context.Context, userID uuid.UUID, p onboarding.Portfolio) error {
	row := models.Portfolio{
		UserID:    userID,
		URL:       strings.TrimSpace(p.URL),
		Files:     nonBlank(p.Files),
		Languages: nonBlank(p.Languages),
	}
	return s.save(ctx, userID, onboarding.StepPortfolio, func(tx *gorm.DB) error {
		return upsert(tx, &row)
	})
}

func (s *ProfileService) SavePayment(ctx context.Context, userID uuid.UUID, p onboarding.Payment) error {
	methods := make([]onboarding.PaymentMethod, 0, len(p.Methods))
	for _, m := range p.Methods {
		name, details := strings.TrimSpace(m.Name), strings.TrimSpace(m.Details)
		if name == "" && details == "" {
			continue
		}
		methods = append(methods, onboarding.PaymentMethod{Name: name, Details: details})
	}
	row := models.PaymentDetails{
		UserID:        userID,
		AccountHolder: strings.TrimSpace(p.AccountHolder),
		AccountNumber: strings.TrimSpace(p.AccountNumber),
		BankName:      strings.TrimSpace(p.BankName),
		RoutingCode:   strings.TrimSpace(p.RoutingCode),
		Methods:       methods,
	}
	return s.save(ctx, userID, onboarding.StepPayment, func(tx *gorm.DB) error {
		return upsert(tx, &row)
	})
}

func upsert(tx *gorm.DB, row interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// save runs write in a transaction and then re-evaluates the review status.
func (s *ProfileService) save(ctx context.Context, userID uuid.UUID, step onboarding.StepID, write func(tx *gorm.DB) error) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	if !role.Role(user.Role).Onboards() {
		return ErrNoOnboarding
	}

	if err := s.db.WithContext(ctx).Transaction(write); err != nil {
		s.logger.Error("profile section write failed", "error", err, "user_id", userID.String(), "step", string(step))
		return fmt.Errorf("save %s: %w", step, err)
	}
	return s.syncStatus(ctx, userID)
}

// syncStatus submits the profile for review once it is ready. Accounts
// already past onboarding are left alone.
func (s *ProfileService) syncStatus(ctx context.Context, userID uuid.UUID) error {
	rec, user, err := s.Record(ctx, userID)
	if err != nil {
		return err
	}
	if onboarding.Status(user.Status) != onboarding.StatusOnboarding {
		return nil
	}
	flow, err := onboarding.FlowFor(role.Role(user.Role))
	if err != nil {
		return ErrNoOnboarding
	}
	if !flow.ReadyForReview(rec) {
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", userID, string(onboarding.StatusOnboarding)).
		Update("status", string(onboarding.StatusApprovalPending))
	if res.Error != nil {
		return fmt.Errorf("submit profile for review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	s.logger.Info("profile submitted for review", "user_id", userID.String(), "role", user.Role)
	s.notify(ctx, userID, nil, "profile_submitted", "Your profile was submitted for review")
	return nil
}

// SetStatus records the admin review decision on a profile.
func (s *ProfileService) SetStatus(ctx context.Context, adminID *uuid.UUID, userID uuid.UUID, req *dto.ProfileStatusRequest) error {
	status := onboarding.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	var title string
	switch status {
	case onboarding.StatusApproved:
		title = "Your profile was approved"
	case onboarding.StatusRejected:
		title = "Your profile was not approved"
	case onboarding.StatusOnboarding:
		title = "Your profile needs changes"
	default:
		return ErrInvalidStatus
	}
	if note := strings.TrimSpace(req.Note); note != "" {
		title += ": " + note
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("update profile status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	s.notify(ctx, userID, adminID, "profile_"+string(status), title)
	return nil
}

func (s *ProfileService) notify(ctx context.Context, userID uuid.UUID, actorID *uuid.UUID, kind, title string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, actorID, kind, title); err != nil {
		s.logger.Error("profile notification failed", "error", err, "user_id", userID.String(), "kind", kind)
	}
}
