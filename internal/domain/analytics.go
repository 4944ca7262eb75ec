package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Client-reported event types with a dedicated activity description.
const (
	EventMovieStarted     = "movie_started"
	EventMovieRated       = "movie_rated"
	EventWatchlistAdded   = "movie_added_to_watchlist"
	EventWatchlistRemoved = "movie_removed_from_watchlist"
	EventProfileCreated   = "profile_created"
	EventProfileUpdated   = "profile_updated"
	EventSearch           = "search"
)

// ActivityFeedSize is how many events the activity feed shows.
const ActivityFeedSize = 20

// NewAnalyticsEvent is an event reported by a client for one of its profiles.
// MovieID is optional.
type NewAnalyticsEvent struct {
	ProfileID string
	MovieID   string
	EventType string
	EventData json.RawMessage
}

// MovieRef is the short movie view embedded in activity items.
type MovieRef struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

// ActivityItem is one analytics event rendered for the activity feed.
type ActivityItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	EventType   string          `json:"event_type"`
	EventData   json.RawMessage `json:"-"`
	Movie       *MovieRef       `json:"movie"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Describe fills Description from the event type, the movie title and
// the event data.
func (a *ActivityItem) Describe() {
	title := ""
	if a.Movie != nil {
		title = a.Movie.Title
	}

	var data struct {
		Rating json.Number `json:"rating"`
		Query  string      `json:"query"`
	}
	if len(a.EventData) > 0 {
		// unknown shapes just leave the fields empty
		_ = json.Unmarshal(a.EventData, &data)
	}

	switch a.EventType {
	case EventMovieStarted:
		a.Description = fmt.Sprintf(`Started watching "%s"`, title)
	case EventMovieProgress:
		a.Description = fmt.Sprintf(`Continued watching "%s"`, title)
	case EventMovieCompleted:
		a.Description = fmt.Sprintf(`Finished watching "%s"`, title)
	case EventMovieRated:
		if data.Rating == "" {
			a.Description = fmt.Sprintf(`Rated "%s"`, title)
		} else {
			a.Description = fmt.Sprintf(`Rated "%s" %s stars`, title, data.Rating)
		}
	case EventWatchlistAdded:
		a.Description = fmt.Sprintf(`Added "%s" to watchlist`, title)
	case EventWatchlistRemoved:
		a.Description = fmt.Sprintf(`Removed "%s" from watchlist`, title)
	case EventProfileCreated:
		a.Description = "Profile was created"
	case EventProfileUpdated:
		a.Description = "Profile was updated"
	case EventSearch:
		query := strings.TrimSpace(data.Query)
		if query == "" {
			query = "something"
		}
		a.Description = fmt.Sprintf(`Searched for "%s"`, query)
	default:
		a.Description = strings.ReplaceAll(a.EventType, "_", " ")
	}
}

// GenreSeconds is watch time summed per raw movie genre value, which may
// list several genres separated by commas.
type GenreSeconds struct {
	Genre   string
	Seconds int64
}

// WatchTime is a duration in seconds with its hour and minute breakdown.
type WatchTime struct {
	Seconds   int64  `json:"seconds"`
	Hours     int64  `json:"hours"`
	Minutes   int64  `json:"minutes"`
	Formatted string `json:"formatted"`
}

// GenreWatchTime is the share of a profile's watch time spent on one genre.
type GenreWatchTime struct {
	Genre        string `json:"genre"`
	TotalSeconds int64  `json:"total_seconds"`
	Hours        int64  `json:"hours"`
	Percentage   int    `json:"percentage"`
}

// WatchTimeStats is the watch time report of one profile.
type WatchTimeStats struct {
	Total   WatchTime        `json:"total_watch_time"`
	ByGenre []GenreWatchTime `json:"watch_time_by_genre"`
}

// NewWatchTime splits seconds into whole hours and remaining minutes.
func NewWatchTime(seconds int64) WatchTime {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return WatchTime{
		Seconds:   seconds,
		Hours:     hours,
		Minutes:   minutes,
		Formatted: fmt.Sprintf("%dh %dm", hours, minutes),
	}
}

// SummarizeWatchTime builds the report from the profile total and the per
// genre sums. A movie listing several genres has its time divided evenly
// between them. Genres are ordered by time spent, most first.
func SummarizeWatchTime(total int64, rows []GenreSeconds) WatchTimeStats {
	seconds := make(map[string]float64)
	var order []string
	for _, row := range rows {
		var genres []string
		for _, g := range strings.Split(row.Genre, ",") {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
		if len(genres) == 0 {
			continue
		}
		share := float64(row.Seconds) / float64(len(genres))
		for _, g := range genres {
			if _, seen := seconds[g]; !seen {
				order = append(order, g)
			}
			seconds[g] += share
		}
	}

	byGenre := make([]GenreWatchTime, 0, len(order))
	for _, g := range order {
		s := seconds[g]
		item := GenreWatchTime{
			Genre:        g,
			TotalSeconds: int64(math.Round(s)),
			Hours:        int64(math.Floor(s / 3600)),
		}
		if total > 0 {
			item.Percentage = int(math.Round(s / float64(total) * 100))
		}
		byGenre = append(byGenre, item)
	}
	sort.SliceStable(byGenre, func(i, j int) bool {
		return byGenre[i].TotalSeconds > byGenre[j].TotalSeconds
	})

	return WatchTimeStats{Total: NewWatchTime(total), ByGenre: byGenre}
}

// Review is a movie review written by an account, joined with the movie title.
type Review struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}
