package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Analytics event types recorded alongside watch progress.
const (
	EventMovieProgress  = "movie_progress"
	EventMovieCompleted = "movie_completed"
)

// WatchEntry is one row of a profile's watch history joined with its movie.
type WatchEntry struct {
	ID          string    `json:"id"`
	MovieID     string    `json:"movie_id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"poster_url"`
	BackdropURL string    `json:"backdrop_url"`
	Duration    int       `json:"duration"`
	ReleaseYear int       `json:"release_year"`
	WatchTime   int       `json:"watch_time"`
	Completed   bool      `json:"completed"`
	LastWatched time.Time `json:"last_watched"`
	Progress    int       `json:"progress"`
}

// ComputeProgress fills Progress as a percentage of the movie duration (minutes)
// covered by WatchTime (seconds), capped at 100.
func (w *WatchEntry) ComputeProgress() {
	if w.Duration <= 0 {
		w.Progress = 0
		return
	}
	pct := math.Round(float64(w.WatchTime) / float64(w.Duration*60) * 100)
	w.Progress = int(math.Min(100, pct))
}

// WatchUpdate is a progress report for one movie on one profile.
type WatchUpdate struct {
	ProfileID string
	MovieID   string
	WatchTime int
	Completed bool
}

// AnalyticsEvent is a profile-scoped analytics record.
type AnalyticsEvent struct {
	ID        string          `json:"id"`
	ProfileID string          `json:"profile_id"`
	MovieID   string          `json:"movie_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}
