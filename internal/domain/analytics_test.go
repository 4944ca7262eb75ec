package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivityDescriptions(t *testing.T) {
	movie := &MovieRef{ID: "m1", Title: "Kuduro"}
	tests := []struct {
		eventType string
		movie     *MovieRef
		data      string
		want      string
	}{
		{EventMovieStarted, movie, "", `Started watching "Kuduro"`},
		{EventMovieProgress, movie, `{"watch_time":60}`, `Continued watching "Kuduro"`},
		{EventMovieCompleted, movie, "", `Finished watching "Kuduro"`},
		{EventMovieRated, movie, `{"rating":4}`, `Rated "Kuduro" 4 stars`},
		{EventMovieRated, movie, `{}`, `Rated "Kuduro"`},
		{EventWatchlistAdded, movie, "", `Added "Kuduro" to watchlist`},
		{EventWatchlistRemoved, movie, "", `Removed "Kuduro" from watchlist`},
		{EventProfileCreated, nil, "", "Profile was created"},
		{EventProfileUpdated, nil, "", "Profile was updated"},
		{EventSearch, nil, `{"query":"semba"}`, `Searched for "semba"`},
		{EventSearch, nil, `not json`, `Searched for "something"`},
		{"trailer_played_twice", nil, "", "trailer played twice"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			item := ActivityItem{EventType: tt.eventType, Movie: tt.movie, EventData: json.RawMessage(tt.data)}
			item.Describe()
			assert.Equal(t, tt.want, item.Description)
		})
	}
}

func TestNewWatchTime(t *testing.T) {
	assert.Equal(t, WatchTime{Seconds: 0, Formatted: "0h 0m"}, NewWatchTime(0))
	assert.Equal(t, WatchTime{Seconds: 5430, Hours: 1, Minutes: 30, Formatted: "1h 30m"}, NewWatchTime(5430))
}

func TestSummarizeWatchTimeSplitsGenres(t *testing.T) {
	stats := SummarizeWatchTime(10800, []GenreSeconds{
		{Genre: "Drama, Comedy", Seconds: 7200},
		{Genre: "Comedy", Seconds: 3600},
		{Genre: "", Seconds: 0},
	})

	assert.Equal(t, "3h 0m", stats.Total.Formatted)
	assert.Equal(t, []GenreWatchTime{
		{Genre: "Comedy", TotalSeconds: 7200, Hours: 2, Percentage: 67},
		{Genre: "Drama", TotalSeconds: 3600, Hours: 1, Percentage: 33},
	}, stats.ByGenre)
}

func TestSummarizeWatchTimeWithoutHistory(t *testing.T) {
	stats := SummarizeWatchTime(0, nil)
	assert.Equal(t, int64(0), stats.Total.Seconds)
	assert.NotNil(t, stats.ByGenre)
	assert.Empty(t, stats.ByGenre)

	// an untagged movie still counts toward the total
	stats = SummarizeWatchTime(600, []GenreSeconds{{Genre: "  ", Seconds: 600}})
	assert.Equal(t, int64(600), stats.Total.Seconds)
	assert.Empty(t, stats.ByGenre)
}
