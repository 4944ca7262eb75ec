package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/repository"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

const (
	defaultEventLimit  = 50
	maxEventTypeLength = 50
)

// ActivityService serves profile-scoped watch history and analytics. Every
// operation resolves the profile against the caller first.
type ActivityService struct {
	profiles *ProfileSelector
	store    repository.ActivityStore
}

// NewActivityService builds the service.
func NewActivityService(profiles *ProfileSelector, store repository.ActivityStore) *ActivityService {
	return &ActivityService{profiles: profiles, store: store}
}

// History pages through a profile's watch history, most recent first.
func (s *ActivityService) History(ctx context.Context, accountID, profileID string, page, limit int) (*Page[domain.WatchEntry], error) {
	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, profileID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)
	entries, total, err := s.store.ListHistory(ctx, profileID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &Page[domain.WatchEntry]{Items: entries, Total: total, Page: page, Limit: limit}, nil
}

// RecordWatch stores playback progress for one movie on one profile.
func (s *ActivityService) RecordWatch(ctx context.Context, accountID string, update domain.WatchUpdate) (*domain.WatchEntry, error) {
	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, update.ProfileID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(update.MovieID) == "" {
		return nil, apperrors.NewValidationError("Movie ID is required", nil)
	}
	if update.WatchTime < 0 {
		return nil, apperrors.NewValidationError("Watch time cannot be negative", nil)
	}
	if update.WatchTime > math.MaxInt32 {
		return nil, apperrors.NewValidationError("Watch time is too large", nil)
	}
	return s.store.RecordWatch(ctx, update)
}

// Events lists a profile's analytics events, newest first.
func (s *ActivityService) Events(ctx context.Context, accountID, profileID string, limit int) ([]domain.AnalyticsEvent, error) {
	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, profileID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = defaultEventLimit
	}
	return s.store.ListEvents(ctx, profileID, limit)
}

// RecordEvent stores a client-reported analytics event for a profile the
// account owns. The movie, when given, must exist.
func (s *ActivityService) RecordEvent(ctx context.Context, accountID string, in domain.NewAnalyticsEvent) (*domain.AnalyticsEvent, error) {
	in.EventType = strings.TrimSpace(in.EventType)
	if strings.TrimSpace(in.ProfileID) == "" || in.EventType == "" {
		return nil, apperrors.NewValidationError("Profile ID and event type are required", nil)
	}
	if utf8.RuneCountInString(in.EventType) > maxEventTypeLength {
		return nil, apperrors.NewValidationError("Event type must be at most 50 characters", nil)
	}
	if len(in.EventData) > 0 && !json.Valid(in.EventData) {
		return nil, apperrors.NewValidationError("Event data must be valid JSON", nil)
	}
	in.MovieID = strings.TrimSpace(in.MovieID)

	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, in.ProfileID); err != nil {
		return nil, err
	}
	return s.store.RecordEvent(ctx, in)
}

// Activity returns the profile's recent activity feed, newest first.
func (s *ActivityService) Activity(ctx context.Context, accountID, profileID string) ([]domain.ActivityItem, error) {
	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, profileID); err != nil {
		return nil, err
	}
	return s.store.ListActivity(ctx, profileID, domain.ActivityFeedSize)
}

// WatchTime reports the profile's total watch time and its split by genre.
func (s *ActivityService) WatchTime(ctx context.Context, accountID, profileID string) (*domain.WatchTimeStats, error) {
	if _, err := s.profiles.ResolveOwnedProfile(ctx, accountID, profileID); err != nil {
		return nil, err
	}
	total, genres, err := s.store.WatchTime(ctx, profileID)
	if err != nil {
		return nil, err
	}
	stats := domain.SummarizeWatchTime(total, genres)
	return &stats, nil
}
