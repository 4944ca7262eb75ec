package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/angocine/internal/domain"
	apperrors "github.com/spec-kit/angocine/pkg/util/errorutil"
)

const (
	pgUniqueViolation   = "23505"
	pgStringTooLong     = "22001"
	pgNumericOutOfRange = "22003"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pgAccountColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanPgAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	var id uuid.UUID
	if err := row.Scan(
		&id,
		&acc.Username,
		&acc.Email,
		&acc.PasswordHash,
		&acc.Role,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	acc.ID = id.String()
	return &acc, nil
}

const pgProfileColumns = `id, user_id, name, avatar, is_kid, created_at, updated_at`

func scanPgProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var id, owner uuid.UUID
	if err := row.Scan(&id, &owner, &p.Name, &p.Avatar, &p.IsKid, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.String()
	p.AccountID = owner.String()
	return &p, nil
}

// parseID rejects identifiers that cannot exist in a UUID column, so callers
// get NotFound instead of a cast error.
func parseID(id, resource string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperrors.NewNotFound(resource, nil)
	}
	return parsed, nil
}

// translatePgError maps constraint and range violations to domain errors.
// fallback overrides the conflict message derived from the constraint name.
func translatePgError(err error, fallback string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		msg := fallback
		if msg == "" {
			msg = duplicateMessage(pgErr.ConstraintName)
		}
		return apperrors.NewConflict(msg, nil)
	case pgStringTooLong:
		return apperrors.NewValidationError(msgValueTooLong, nil)
	case pgNumericOutOfRange:
		return apperrors.NewValidationError(msgValueOutOfRange, nil)
	}
	return err
}

func (s *postgresStore) CreateAccount(ctx context.Context, account *domain.Account, profile *domain.Profile) error {
	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	account.CreatedAt, account.UpdatedAt = now, now

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const insertAccount = `
        INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`
		if _, err := tx.Exec(ctx, insertAccount,
			account.ID,
			account.Username,
			account.Email,
			account.PasswordHash,
			account.Role,
			now,
		); err != nil {
			return translatePgError(err, msgDuplicateAccount)
		}
		if profile == nil {
			return nil
		}
		profile.AccountID = account.ID
		return insertPgProfile(ctx, tx, profile, now)
	})
}

func insertPgProfile(ctx context.Context, tx pgx.Tx, profile *domain.Profile, now time.Time) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt, profile.UpdatedAt = now, now

	const query = `
        INSERT INTO profiles (id, user_id, name, avatar, is_kid, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := tx.Exec(ctx, query,
		profile.ID,
		profile.AccountID,
		profile.Name,
		profile.Avatar,
		profile.IsKid,
		now,
	)
	return translatePgError(err, "")
}

func (s *postgresStore) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + pgAccountColumns + ` FROM users WHERE email = $1`
	acc, err := scanPgAccount(s.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	return acc, err
}

func (s *postgresStore) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	uid, err := parseID(id, "User")
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + pgAccountColumns + ` FROM users WHERE id = $1`
	acc, err := scanPgAccount(s.pool.QueryRow(ctx, query, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	return acc, err
}

// lockAdmins locks the target row and every admin row in id order and
// reports the target's role together with the number of admins.
func lockAdmins(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Role, int, error) {
	const query = `
        SELECT id, role FROM users
        WHERE id = $1 OR role = 'admin'
        ORDER BY id
        FOR UPDATE`
	rows, err := tx.Query(ctx, query, id)
	if err != nil {
		return "", 0, err
	}
	defer rows.Close()

	var (
		target domain.Role
		admins int
	)
	for rows.Next() {
		var rowID uuid.UUID
		var role domain.Role
		if err := rows.Scan(&rowID, &role); err != nil {
			return "", 0, err
		}
		if rowID == id {
			target = role
		}
		if role == domain.RoleAdmin {
			admins++
		}
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}
	if target == "" {
		return "", 0, apperrors.NewNotFound("User", nil)
	}
	return target, admins, nil
}

func (s *postgresStore) UpdateAccount(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error) {
	uid, err := parseID(id, "User")
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return s.FindAccountByID(ctx, id)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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
		add("role", *update.Role)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, uid)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), pgAccountColumns)

	var updated *domain.Account
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if update.Role != nil && *update.Role != domain.RoleAdmin {
			current, admins, err := lockAdmins(ctx, tx, uid)
			if err != nil {
				return err
			}
			if current == domain.RoleAdmin && admins <= 1 {
				return apperrors.NewInvalidOperation(msgLastAdminDemote)
			}
		}

		acc, err := scanPgAccount(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User", nil)
		}
		if err != nil {
			return translatePgError(err, "")
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *postgresStore) DeleteAccount(ctx context.Context, id string) error {
	uid, err := parseID(id, "User")
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		role, admins, err := lockAdmins(ctx, tx, uid)
		if err != nil {
			return err
		}
		if role == domain.RoleAdmin && admins <= 1 {
			return apperrors.NewInvalidOperation(msgLastAdminDelete)
		}
		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
		return err
	})
}

func (s *postgresStore) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		where = append(where, fmt.Sprintf("(LOWER(username) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d)", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		pgAccountColumns, clause, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, limit)
	for rows.Next() {
		acc, err := scanPgAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, total, rows.Err()
}

func (s *postgresStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n)
	return n, err
}

func (s *postgresStore) AccountStats(ctx context.Context, id string) (domain.AccountStats, error) {
	var stats domain.AccountStats
	uid, err := parseID(id, "User")
	if err != nil {
		return stats, err
	}
	const query = `
        SELECT
            (SELECT COUNT(*) FROM watchlist WHERE user_id = $1),
            (SELECT COUNT(DISTINCT wh.movie_id)
               FROM watch_history wh
               JOIN profiles p ON p.id = wh.profile_id
              WHERE p.user_id = $1),
            (SELECT COUNT(*) FROM reviews WHERE user_id = $1)`
	err = s.pool.QueryRow(ctx, query, uid).Scan(&stats.WatchlistCount, &stats.HistoryCount, &stats.ReviewCount)
	return stats, err
}

func (s *postgresStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	uid, err := parseID(profile.AccountID, "User")
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, uid).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User", nil)
		}
		if err != nil {
			return err
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE user_id = $1`, uid).Scan(&count); err != nil {
			return err
		}
		if count >= domain.MaxProfilesPerAccount {
			return profileLimitError()
		}
		return insertPgProfile(ctx, tx, profile, time.Now().UTC())
	})
}

func (s *postgresStore) ListProfiles(ctx context.Context, accountID string) ([]domain.Profile, error) {
	uid, err := parseID(accountID, "User")
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + pgProfileColumns + ` FROM profiles WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := s.pool.Query(ctx, query, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0, domain.MaxProfilesPerAccount)
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *postgresStore) GetOwnedProfile(ctx context.Context, accountID, profileID string) (*domain.Profile, error) {
	uid, err := parseID(accountID, "Profile")
	if err != nil {
		return nil, err
	}
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + pgProfileColumns + ` FROM profiles WHERE id = $1 AND user_id = $2`
	p, err := scanPgProfile(s.pool.QueryRow(ctx, query, pid, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Profile", nil)
	}
	return p, err
}

func (s *postgresStore) UpdateProfile(ctx context.Context, accountID, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.Empty() {
		return s.GetOwnedProfile(ctx, accountID, profileID)
	}
	uid, err := parseID(accountID, "Profile")
	if err != nil {
		return nil, err
	}
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
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
	args = append(args, pid, uid)

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), pgProfileColumns)
	p, err := scanPgProfile(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("Profile", nil)
	}
	if err != nil {
		return nil, translatePgError(err, "")
	}
	return p, nil
}

func (s *postgresStore) DeleteProfile(ctx context.Context, accountID, profileID string) error {
	uid, err := parseID(accountID, "Profile")
	if err != nil {
		return err
	}
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, uid).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Profile", nil)
		}
		if err != nil {
			return err
		}

		var owned, count int
		const counts = `
            SELECT COUNT(*) FILTER (WHERE id = $1), COUNT(*)
            FROM profiles WHERE user_id = $2`
		if err := tx.QueryRow(ctx, counts, pid, uid).Scan(&owned, &count); err != nil {
			return err
		}
		if owned == 0 {
			return apperrors.NewNotFound("Profile", nil)
		}
		if count <= 1 {
			return apperrors.NewInvalidOperation(msgLastProfile)
		}
		_, err = tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1 AND user_id = $2`, pid, uid)
		return err
	})
}

const pgHistorySelect = `
        SELECT wh.id, wh.movie_id, m.title, m.poster_url, m.backdrop_url, m.duration,
               m.release_year, wh.watch_time, wh.completed, wh.last_watched
        FROM watch_history wh
        JOIN movies m ON m.id = wh.movie_id`

func scanPgWatchEntry(row pgx.Row) (*domain.WatchEntry, error) {
	var e domain.WatchEntry
	var id, movieID uuid.UUID
	if err := row.Scan(
		&id,
		&movieID,
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
	e.ID = id.String()
	e.MovieID = movieID.String()
	e.ComputeProgress()
	return &e, nil
}

func (s *postgresStore) RecordWatch(ctx context.Context, update domain.WatchUpdate) (*domain.WatchEntry, error) {
	pid, err := parseID(update.ProfileID, "Profile")
	if err != nil {
		return nil, err
	}
	mid, err := parseID(update.MovieID, "Movie")
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]any{
		"watch_time": update.WatchTime,
		"completed":  update.Completed,
	})
	if err != nil {
		return nil, err
	}

	var entry *domain.WatchEntry
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, mid).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFound("Movie", nil)
		}

		now := time.Now().UTC()
		const upsert = `
            INSERT INTO watch_history (id, profile_id, movie_id, watch_time, completed, last_watched, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $6, $6)
            ON CONFLICT (profile_id, movie_id) DO UPDATE
            SET watch_time = EXCLUDED.watch_time,
                completed = EXCLUDED.completed,
                last_watched = EXCLUDED.last_watched,
                updated_at = EXCLUDED.updated_at`
		if _, err := tx.Exec(ctx, upsert, uuid.New(), pid, mid, update.WatchTime, update.Completed, now); err != nil {
			return translatePgError(err, "")
		}

		const event = `
            INSERT INTO analytics_events (id, profile_id, movie_id, event_type, event_data, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.Exec(ctx, event, uuid.New(), pid, mid, eventTypeFor(update.Completed), string(data), now); err != nil {
			return err
		}

		e, err := scanPgWatchEntry(tx.QueryRow(ctx, pgHistorySelect+` WHERE wh.profile_id = $1 AND wh.movie_id = $2`, pid, mid))
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

func (s *postgresStore) ListHistory(ctx context.Context, profileID string, limit, offset int) ([]domain.WatchEntry, int, error) {
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM watch_history WHERE profile_id = $1`, pid).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := pgHistorySelect + ` WHERE wh.profile_id = $1 ORDER BY wh.last_watched DESC, wh.id LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, pid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]domain.WatchEntry, 0, limit)
	for rows.Next() {
		e, err := scanPgWatchEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

func (s *postgresStore) ListEvents(ctx context.Context, profileID string, limit int) ([]domain.AnalyticsEvent, error) {
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return nil, err
	}
	const query = `
        SELECT id, profile_id, movie_id, event_type, event_data, created_at
        FROM analytics_events
        WHERE profile_id = $1
        ORDER BY created_at DESC, id
        LIMIT $2`
	rows, err := s.pool.Query(ctx, query, pid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var (
			ev       domain.AnalyticsEvent
			id, prof uuid.UUID
			movie    *uuid.UUID
			data     []byte
		)
		if err := rows.Scan(&id, &prof, &movie, &ev.EventType, &data, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.ID = id.String()
		ev.ProfileID = prof.String()
		if movie != nil {
			ev.MovieID = movie.String()
		}
		ev.EventData = json.RawMessage(data)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *postgresStore) RecordEvent(ctx context.Context, in domain.NewAnalyticsEvent) (*domain.AnalyticsEvent, error) {
	pid, err := parseID(in.ProfileID, "Profile")
	if err != nil {
		return nil, err
	}
	var movie *uuid.UUID
	if in.MovieID != "" {
		mid, err := parseID(in.MovieID, "Movie")
		if err != nil {
			return nil, err
		}
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, mid).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NewNotFound("Movie", nil)
		}
		movie = &mid
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
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, insert, ev.ID, pid, movie, ev.EventType, string(ev.EventData), ev.CreatedAt); err != nil {
		return nil, translatePgError(err, "")
	}
	return ev, nil
}

func (s *postgresStore) ListActivity(ctx context.Context, profileID string, limit int) ([]domain.ActivityItem, error) {
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return nil, err
	}
	const query = `
        SELECT ae.id, ae.event_type, ae.event_data, ae.created_at,
               m.id, m.title, m.poster_url
        FROM analytics_events ae
        LEFT JOIN movies m ON m.id = ae.movie_id
        WHERE ae.profile_id = $1
        ORDER BY ae.created_at DESC, ae.id
        LIMIT $2`
	rows, err := s.pool.Query(ctx, query, pid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ActivityItem, 0, limit)
	for rows.Next() {
		var (
			item          domain.ActivityItem
			id            uuid.UUID
			movieID       *uuid.UUID
			title, poster *string
			data          []byte
		)
		if err := rows.Scan(&id, &item.EventType, &data, &item.CreatedAt, &movieID, &title, &poster); err != nil {
			return nil, err
		}
		item.ID = id.String()
		item.EventData = json.RawMessage(data)
		if movieID != nil {
			item.Movie = &domain.MovieRef{ID: movieID.String()}
			if title != nil {
				item.Movie.Title = *title
			}
			if poster != nil {
				item.Movie.PosterURL = *poster
			}
		}
		item.Describe()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *postgresStore) WatchTime(ctx context.Context, profileID string) (int64, []domain.GenreSeconds, error) {
	pid, err := parseID(profileID, "Profile")
	if err != nil {
		return 0, nil, err
	}
	var total int64
	const sum = `SELECT COALESCE(SUM(watch_time), 0)::BIGINT FROM watch_history WHERE profile_id = $1`
	if err := s.pool.QueryRow(ctx, sum, pid).Scan(&total); err != nil {
		return 0, nil, err
	}

	const byGenre = `
        SELECT m.genre, SUM(wh.watch_time)::BIGINT AS total_seconds
        FROM watch_history wh
        JOIN movies m ON m.id = wh.movie_id
        WHERE wh.profile_id = $1
        GROUP BY m.genre
        ORDER BY total_seconds DESC, m.genre`
	rows, err := s.pool.Query(ctx, byGenre, pid)
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

func (s *postgresStore) ListReviews(ctx context.Context, accountID string, limit int) ([]domain.Review, error) {
	uid, err := parseID(accountID, "User")
	if err != nil {
		return nil, err
	}
	const query = `
        SELECT r.id, r.movie_id, m.title, r.rating, r.comment, r.created_at
        FROM reviews r
        JOIN movies m ON m.id = r.movie_id
        WHERE r.user_id = $1
        ORDER BY r.created_at DESC, r.id
        LIMIT $2`
	rows, err := s.pool.Query(ctx, query, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, limit)
	for rows.Next() {
		var (
			r           domain.Review
			id, movieID uuid.UUID
		)
		if err := rows.Scan(&id, &movieID, &r.MovieTitle, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ID = id.String()
		r.MovieID = movieID.String()
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
