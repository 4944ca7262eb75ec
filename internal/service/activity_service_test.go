package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/angocine/internal/domain"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

func TestRecordEventValidatesAndStores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana, err := env.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	profile := ana.Profiles[0].ID
	movie := env.insertMovie(t, "Kuduro", 90)

	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{ProfileID: profile, EventType: "  "})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "Profile ID and event type are required", apperrors.ToDomainError(err).Message)

	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{ProfileID: profile, EventType: strings.Repeat("e", 51)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{
		ProfileID: profile, EventType: domain.EventSearch, EventData: json.RawMessage(`{broken`),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{
		ProfileID: profile, MovieID: uuid.NewString(), EventType: domain.EventMovieStarted,
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Movie not found", apperrors.ToDomainError(err).Message)

	event, err := env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{
		ProfileID: profile, MovieID: movie, EventType: " " + domain.EventMovieRated + " ", EventData: json.RawMessage(`{"rating":5}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventMovieRated, event.EventType)

	feed, err := env.activity.Activity(ctx, ana.Account.ID, profile)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, `Rated "Kuduro" 5 stars`, feed[0].Description)
}

func TestActivityFeedIsCappedAndNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana, err := env.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	profile := ana.Profiles[0].ID

	for i := 0; i < domain.ActivityFeedSize+5; i++ {
		_, err := env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{ProfileID: profile, EventType: domain.EventProfileUpdated})
		require.NoError(t, err)
	}
	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{ProfileID: profile, EventType: domain.EventProfileCreated})
	require.NoError(t, err)

	feed, err := env.activity.Activity(ctx, ana.Account.ID, profile)
	require.NoError(t, err)
	assert.Len(t, feed, domain.ActivityFeedSize)
	assert.Equal(t, "Profile was created", feed[0].Description)
}

func TestWatchTimeSplitsGenres(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana, err := env.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	profile := ana.Profiles[0].ID

	empty, err := env.activity.WatchTime(ctx, ana.Account.ID, profile)
	require.NoError(t, err)
	assert.Equal(t, "0h 0m", empty.Total.Formatted)
	assert.Empty(t, empty.ByGenre)

	movie := env.insertMovie(t, "Kuduro", 120)
	_, err = env.db.Exec(`UPDATE movies SET genre = 'Action,Drama' WHERE id = ?`, movie)
	require.NoError(t, err)
	_, err = env.activity.RecordWatch(ctx, ana.Account.ID, domain.WatchUpdate{ProfileID: profile, MovieID: movie, WatchTime: 5400})
	require.NoError(t, err)

	stats, err := env.activity.WatchTime(ctx, ana.Account.ID, profile)
	require.NoError(t, err)
	assert.Equal(t, domain.NewWatchTime(5400), stats.Total)
	require.Len(t, stats.ByGenre, 2)
	for _, g := range stats.ByGenre {
		assert.Equal(t, int64(2700), g.TotalSeconds)
		assert.Equal(t, 50, g.Percentage)
	}
}

func TestAnalyticsRequireOwnedProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana, err := env.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	rui, err := env.auth.Register(ctx, RegisterInput{Username: "rui", Email: "rui@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	ruiProfile := rui.Profiles[0].ID

	_, err = env.activity.RecordEvent(ctx, ana.Account.ID, domain.NewAnalyticsEvent{ProfileID: ruiProfile, EventType: domain.EventSearch})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = env.activity.Activity(ctx, ana.Account.ID, ruiProfile)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = env.activity.WatchTime(ctx, ana.Account.ID, ruiProfile)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	feed, err := env.activity.Activity(ctx, rui.Account.ID, ruiProfile)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestAdminAccountDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana, err := env.auth.Register(ctx, RegisterInput{Username: "ana", Email: "ana@angocine.test", Password: "secret1"})
	require.NoError(t, err)
	movie := env.insertMovie(t, "Kuduro", 90)
	for i := 0; i < 12; i++ {
		_, err := env.db.Exec(`INSERT INTO reviews (id, user_id, movie_id, rating, comment) VALUES (?, ?, ?, 4, '')`,
			uuid.NewString(), ana.Account.ID, movie)
		require.NoError(t, err)
	}
	_, err = env.db.Exec(`INSERT INTO watchlist (id, user_id, movie_id) VALUES (?, ?, ?)`, uuid.NewString(), ana.Account.ID, movie)
	require.NoError(t, err)

	details, err := env.admin.AccountDetails(ctx, ana.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", details.Account.Username)
	assert.Len(t, details.Profiles, 1)
	assert.Len(t, details.Reviews, adminReviewLimit)
	assert.Equal(t, "Kuduro", details.Reviews[0].MovieTitle)
	assert.Equal(t, 12, details.Stats.ReviewCount)
	assert.Equal(t, 1, details.Stats.WatchlistCount)

	_, err = env.admin.AccountDetails(ctx, uuid.NewString())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "User not found", apperrors.ToDomainError(err).Message)
}
