package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/spec-kit/angocine/internal/domain"
	"github.com/spec-kit/angocine/internal/persistence"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore returns a Store on an embedded SQLite database. The handle
// is expected to come from persistence.NewSQLite, whose immediate
// transactions serialize the check-then-write paths.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sqliteAccountColumns = `id, username, email, password_hash, role, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAccount(row rowScanner) (*domain.Account, error) {
	var acc domain.Account
	if err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Role,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &acc, nil
}

const sqliteProfileColumns = `id, user_id, name, avatar, is_kid, created_at, updated_at`

func scanSQLiteProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Avatar, &p.IsKid, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func sqliteConflict(err error, fallback string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "UNIQUE") {
		msg := fallback
		if msg == "" {
			msg = duplicateMessage(se.Error())
		}
		return apperrors.NewConflict(msg, nil)
	}
	return err
}

func (s *sqliteStore) CreateAccount(ctx context.Context, account *domain.Account, profile *domain.Profile) error {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	account.CreatedAt, account.UpdatedAt = now, now

	return persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		const insertAccount = `
        INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insertAccount,
			account.ID,
			account.Username,
			account.Email,
			account.PasswordHash,
			string(account.Role),
			now,
			now,
		); err != nil {
			return sqliteConflict(err, msgDuplicateAccount)
		}
		if profile == nil {
			return nil
		}
		profile.AccountID = account.ID
		return insertSQLiteProfile(ctx, tx, profile, now)
	})
}

func insertSQLiteProfile(ctx context.Context, tx persistence.DBTX, profile *domain.Profile, now time.Time) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt, profile.UpdatedAt = now, now

	const query = `
        INSERT INTO profiles (id, user_id, name, avatar, is_kid, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		profile.ID,
		profile.AccountID,
		profile.Name,
		profile.Avatar,
		profile.IsKid,
		now,
		now,
	)
	return err
}

func (s *sqliteStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + sqliteAccountColumns + ` FROM users WHERE email = ?`
	acc, err := scanSQLiteAccount(s.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	return acc, err
}

func (s *sqliteStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return findSQLiteAccount(ctx, s.db, id)
}

func findSQLiteAccount(ctx context.Context, q persistence.DBTX, id string) (*domain.Account, error) {
	query := `SELECT ` + sqliteAccountColumns + ` FROM users WHERE id = ?`
	acc, err := scanSQLiteAccount(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	return acc, err
}

// adminGuard reports the role of id and the number of admins. It must run
// inside the write transaction.
func adminGuard(ctx context.Context, tx persistence.DBTX, id string) (domain.Role, int, error) {
	const query = `
        SELECT role, (SELECT COUNT(*) FROM users WHERE role = 'admin')
        FROM users WHERE id = ?`
	var (
		role   domain.Role
		admins int
	)
	err := tx.QueryRowContext(ctx, query, id).Scan(&role, &admins)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, apperrors.NewNotFound("User", nil)
	}
	return role, admins, err
}

func (s *sqliteStore) UpdateAccount(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error) {
	if update.Empty() {
		return s.FindAccountByID(ctx, id)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Username != nil {
		add("username", *update.Username)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.PasswordHash != nil {
		add("password_hash", *update.PasswordHash)
	}
	if update.Role != nil {
		add("role", string(*update.Role))
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	var updated *domain.Account
	err := persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		if update.Role != nil && *update.Role != domain.RoleAdmin {
			current, admins, err := adminGuard(ctx, tx, id)
			if err != nil {
				return err
			}
			if current == domain.RoleAdmin && admins <= 1 {
				return apperrors.NewInvalidOperation(msgLastAdminDemote)
			}
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return sqliteConflict(err, "")
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperrors.NewNotFound("User", nil)
		}

		acc, err := findSQLiteAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *sqliteStore) DeleteAccount(ctx context.Context, id string) error {
	return persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		role, admins, err := adminGuard(ctx, tx, id)
		if err != nil {
			return err
		}
		if role == domain.RoleAdmin && admins <= 1 {
			return apperrors.NewInvalidOperation(msgLastAdminDelete)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		return err
	})
}

func (s *sqliteStore) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 5)
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where = append(where, `(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Role != nil {
		where = append(where, "role = ?")
		args = append(args, string(*filter.Role))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := `SELECT ` + sqliteAccountColumns + ` FROM users` + clause + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, limit)
	for rows.Next() {
		acc, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, total, rows.Err()
}

func (s *sqliteStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n)
	return n, err
}

func (s *sqliteStore) AccountStats(ctx context.Context, id string) (domain.AccountStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM watchlist WHERE user_id = ?),
            (SELECT COUNT(DISTINCT wh.movie_id)
               FROM watch_history wh
               JOIN profiles p ON p.id = wh.profile_id
              WHERE p.user_id = ?),
            (SELECT COUNT(*) FROM reviews WHERE user_id = ?)`
	var stats domain.AccountStats
	err := s.db.QueryRowContext(ctx, query, id, id, id).Scan(&stats.WatchlistCount, &stats.HistoryCount, &stats.ReviewCount)
	return stats, err
}

func (s *sqliteStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		var exists, count int
		const counts = `
            SELECT
                (SELECT COUNT(*) FROM users WHERE id = ?),
                (SELECT COUNT(*) FROM profiles WHERE user_id = ?)`
		if err := tx.QueryRowContext(ctx, counts, profile.AccountID, profile.AccountID).Scan(&exists, &count); err != nil {
			return err
		}
		if exists == 0 {
			return apperrors.NewNotFound("User", nil)
		}
		if count >= domain.MaxProfilesPerAccount {
			return profileLimitError()
		}
		return insertSQLiteProfile(ctx, tx, profile, time.Now().UTC())
	})
}

func (s *sqliteStore) ListProfiles(ctx context.Context, accountID string) ([]domain.Profile, error) {
	query := `SELECT ` + sqliteProfileColumns + ` FROM profiles WHERE user_id = ? ORDER BY created_at, rowid`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0, domain.MaxProfilesPerAccount)
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *sqliteStore) GetOwnedProfile(ctx context.Context, accountID, profileID string) (*domain.Profile, error) {
	return ownedSQLiteProfile(ctx, s.db, accountID, profileID)
}

func ownedSQLiteProfile(ctx context.Context, q persistence.DBTX, accountID, profileID string) (*domain.Profile, error) {
	query := `SELECT ` + sqliteProfileColumns + ` FROM profiles WHERE id = ? AND user_id = ?`
	p, err := scanSQLiteProfile(q.QueryRowContext(ctx, query, profileID, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("Profile", nil)
	}
	return p, err
}

func (s *sqliteStore) UpdateProfile(ctx context.Context, accountID, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.Empty() {
		return s.GetOwnedProfile(ctx, accountID, profileID)
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Avatar != nil {
		add("avatar", *update.Avatar)
	}
	if update.IsKid != nil {
		add("is_kid", *update.IsKid)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, profileID, accountID)
	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`

	var updated *domain.Profile
	err := persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return apperrors.NewNotFound("Profile", nil)
		}
		p, err := ownedSQLiteProfile(ctx, tx, accountID, profileID)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *sqliteStore) DeleteProfile(ctx context.Context, accountID, profileID string) error {
	return persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		var owned, count int
		const counts = `
            SELECT COALESCE(SUM(id = ?), 0), COUNT(*)
            FROM profiles WHERE user_id = ?`
		if err := tx.QueryRowContext(ctx, counts, profileID, accountID).Scan(&owned, &count); err != nil {
			return err
		}
		if owned == 0 {
			return apperrors.NewNotFound("Profile", nil)
		}
		if count <= 1 {
			return apperrors.NewInvalidOperation(msgLastProfile)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ? AND user_id = ?`, profileID, accountID)
		return err
	})
}

const sqliteHistorySelect = `
        SELECT wh.id, wh.movie_id, m.title, m.poster_url, m.backdrop_url, m.duration,
               m.release_year, wh.watch_time, wh.completed, wh.last_watched
        FROM watch_history wh
        JOIN movies m ON m.id = wh.movie_id`

func scanSQLiteWatchEntry(row rowScanner) (*domain.WatchEntry, error) {
	var e domain.WatchEntry
	if err := row.Scan(
		&e.ID,
		&e.MovieID,
		&e.Title,
		&e.PosterURL,
		&e.BackdropURL,
		&e.Duration,
		&e.ReleaseYear,
		&e.WatchTime,
		&e.Completed,
		&e.LastWatched,
	); err != nil {
		return nil, err
	}
	e.ComputeProgress()
	return &e, nil
}

func (s *sqliteStore) RecordWatch(ctx context.Context, update domain.WatchUpdate) (*domain.WatchEntry, error) {
	data, err := json.Marshal(map[string]any{
		"watch_time": update.WatchTime,
		"completed":  update.Completed,
	})
	if err != nil {
		return nil, err
	}

	var entry *domain.WatchEntry
	err = persistence.WithTx(ctx, s.db, func(ctx context.Context, tx persistence.DBTX) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies WHERE id = ?`, update.MovieID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return apperrors.NewNotFound("Movie", nil)
		}

		now := time.Now().UTC()
		const upsert = `
            INSERT INTO watch_history (id, profile_id, movie_id, watch_time, completed, last_watched, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (profile_id, movie_id) DO UPDATE
            SET watch_time = excluded.watch_time,
                completed = excluded.completed,
                last_watched = excluded.last_watched,
                updated_at = excluded.updated_at`
		if _, err := tx.ExecContext(ctx, upsert,
			uuid.NewString(), update.ProfileID, update.MovieID,
			update.WatchTime, update.Completed, now, now, now,
		); err != nil {
			return err
		}

		const event = `
            INSERT INTO analytics_events (id, profile_id, movie_id, event_type, event_data, created_at)
            VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, event,
			uuid.NewString(), update.ProfileID, update.MovieID,
			eventTypeFor(update.Completed), string(data), now,
		); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, sqliteHistorySelect+` WHERE wh.profile_id = ? AND wh.movie_id = ?`,
			update.ProfileID, update.MovieID)
		e, err := scanSQLiteWatchEntry(row)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *sqliteStore) ListHistory(ctx context.Context, profileID string, limit, offset int) ([]domain.WatchEntry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watch_history WHERE profile_id = ?`, profileID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := sqliteHistorySelect + ` WHERE wh.profile_id = ? ORDER BY wh.last_watched DESC, wh.rowid DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, profileID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]domain.WatchEntry, 0, limit)
	for rows.Next() {
		e, err := scanSQLiteWatchEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

func (s *sqliteStore) ListEvents(ctx context.Context, profileID string, limit int) ([]domain.AnalyticsEvent, error) {
	const query = `
        SELECT id, profile_id, movie_id, event_type, event_data, created_at
        FROM analytics_events
        WHERE profile_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var (
			ev    domain.AnalyticsEvent
			movie sql.NullString
			data  string
		)
		if err := rows.Scan(&ev.ID, &ev.ProfileID, &movie, &ev.EventType, &data, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.MovieID = movie.String
		ev.EventData = json.RawMessage(data)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *sqliteStore) RecordEvent(ctx context.Context, in domain.NewAnalyticsEvent) (*domain.AnalyticsEvent, error) {
	var movie sql.NullString
	if in.MovieID != "" {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies WHERE id = ?`, in.MovieID).Scan(&exists); err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, apperrors.NewNotFound("Movie", nil)
		}
		movie = sql.NullString{String: in.MovieID, Valid: true}
	}

	ev := &domain.AnalyticsEvent{
		ID:        uuid.NewString(),
		ProfileID: in.ProfileID,
		MovieID:   in.MovieID,
		EventType: in.EventType,
		EventData: json.RawMessage(eventDataOrEmpty(in.EventData)),
		CreatedAt: time.Now().UTC(),
	}
	const insert = `
        INSERT INTO analytics_events (id, profile_id, movie_id, event_type, event_data, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insert,
		ev.ID, ev.ProfileID, movie, ev.EventType, string(ev.EventData), ev.CreatedAt,
	); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *sqliteStore) ListActivity(ctx context.Context, profileID string, limit int) ([]domain.ActivityItem, error) {
	const query = `
        SELECT ae.id, ae.event_type, ae.event_data, ae.created_at,
               m.id, m.title, m.poster_url
        FROM analytics_events ae
        LEFT JOIN movies m ON m.id = ae.movie_id
        WHERE ae.profile_id = ?
        ORDER BY ae.created_at DESC, ae.rowid DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ActivityItem, 0, limit)
	for rows.Next() {
		var (
			item                   domain.ActivityItem
			data                   string
			movieID, title, poster sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.EventType, &data, &item.CreatedAt, &movieID, &title, &poster); err != nil {
			return nil, err
		}
		item.EventData = json.RawMessage(data)
		if movieID.Valid {
			item.Movie = &domain.MovieRef{ID: movieID.String, Title: title.String, PosterURL: poster.String}
		}
		item.Describe()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *sqliteStore) WatchTime(ctx context.Context, profileID string) (int64, []domain.GenreSeconds, error) {
	var total int64
	const sum = `SELECT COALESCE(SUM(watch_time), 0) FROM watch_history WHERE profile_id = ?`
	if err := s.db.QueryRowContext(ctx, sum, profileID).Scan(&total); err != nil {
		return 0, nil, err
	}

	const byGenre = `
        SELECT m.genre, SUM(wh.watch_time) AS total_seconds
        FROM watch_history wh
        JOIN movies m ON m.id = wh.movie_id
        WHERE wh.profile_id = ?
        GROUP BY m.genre
        ORDER BY total_seconds DESC, m.genre`
	rows, err := s.db.QueryContext(ctx, byGenre, profileID)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var genres []domain.GenreSeconds
	for rows.Next() {
		var g domain.GenreSeconds
		if err := rows.Scan(&g.Genre, &g.Seconds); err != nil {
			return 0, nil, err
		}
		genres = append(genres, g)
	}
	return total, genres, rows.Err()
}

func (s *sqliteStore) ListReviews(ctx context.Context, accountID string, limit int) ([]domain.Review, error) {
	const query = `
        SELECT r.id, r.movie_id, m.title, r.rating, r.comment, r.created_at
        FROM reviews r
        JOIN movies m ON m.id = r.movie_id
        WHERE r.user_id = ?
        ORDER BY r.created_at DESC, r.rowid DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, limit)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.MovieID, &r.MovieTitle, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
