package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"leetcode-reminder/internal/domain/model"
	"leetcode-reminder/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo stores one row per chat user keyed by telegram_id.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
id, telegram_id, COALESCE(telegram_username,''), COALESCE(telegram_first_name,''), COALESCE(telegram_last_name,''),
COALESCE(leetcode_username,''), COALESCE(timezone,''), remind_times::text,
created_at, updated_at, last_active_at, is_active`

// Register upserts the profile and marks the user active.
func (r *UserRepo) Register(ctx context.Context, tx repository.Tx, p model.Profile) error {
	const q = `
INSERT INTO users (telegram_id, telegram_username, telegram_first_name, telegram_last_name, is_active, last_active_at)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), TRUE, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  telegram_username   = COALESCE(EXCLUDED.telegram_username, users.telegram_username),
  telegram_first_name = COALESCE(EXCLUDED.telegram_first_name, users.telegram_first_name),
  telegram_last_name  = COALESCE(EXCLUDED.telegram_last_name, users.telegram_last_name),
  is_active           = TRUE,
  last_active_at      = now(),
  updated_at          = now();`
	return r.exec(ctx, tx, q, p.UserID, p.Username, p.FirstName, p.LastName)
}

// UpdateUsername upserts so a row missing from the durable store is recreated.
func (r *UserRepo) UpdateUsername(ctx context.Context, tx repository.Tx, userID int64, username string) error {
	const q = `
INSERT INTO users (telegram_id, leetcode_username, last_active_at)
VALUES ($1, $2, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  leetcode_username = EXCLUDED.leetcode_username,
  last_active_at    = now(),
  updated_at        = now();`
	return r.exec(ctx, tx, q, userID, username)
}

func (r *UserRepo) UpdateTimezone(ctx context.Context, tx repository.Tx, userID int64, tz string) error {
	const q = `
INSERT INTO users (telegram_id, timezone, last_active_at)
VALUES ($1, $2, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  timezone       = EXCLUDED.timezone,
  last_active_at = now(),
  updated_at     = now();`
	return r.exec(ctx, tx, q, userID, tz)
}

func (r *UserRepo) UpdateRemindTimes(ctx context.Context, tx repository.Tx, userID int64, times []string) error {
	if times == nil {
		times = []string{}
	}
	data, err := json.Marshal(times)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (telegram_id, remind_times, last_active_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  remind_times   = EXCLUDED.remind_times,
  last_active_at = now(),
  updated_at     = now();`
	return r.exec(ctx, tx, q, userID, string(data))
}

func (r *UserRepo) SetActive(ctx context.Context, tx repository.Tx, userID int64, active bool) error {
	const q = `
INSERT INTO users (telegram_id, is_active, last_active_at)
VALUES ($1, $2, now())
ON CONFLICT (telegram_id) DO UPDATE SET
  is_active      = EXCLUDED.is_active,
  last_active_at = now(),
  updated_at     = now();`
	return r.exec(ctx, tx, q, userID, active)
}

func (r *UserRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.UserRecord, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id=$1;`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// FindByExternalUsername returns active users linked to username (case-insensitive).
func (r *UserRepo) FindByExternalUsername(ctx context.Context, tx repository.Tx, username string) ([]*model.UserRecord, error) {
	return r.query(ctx, tx, `SELECT `+userColumns+` FROM users
WHERE lower(leetcode_username)=lower($1) AND is_active ORDER BY telegram_id;`, strings.TrimSpace(username))
}

// List pages through users ordered by id; total counts every row that matches the filter.
func (r *UserRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool, offset, limit int) ([]*model.UserRecord, int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ($1 = FALSE OR is_active);`, activeOnly).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE ($1 = FALSE OR is_active) ORDER BY id OFFSET $2`
	args := []interface{}{activeOnly, offset}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}
	users, err := r.query(ctx, tx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) ListActiveIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT telegram_id FROM users WHERE is_active ORDER BY telegram_id;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err())
}

// Stats counts all users; username and timezone breakdowns cover active users only.
func (r *UserRepo) Stats(ctx context.Context, tx repository.Tx) (*model.UserStats, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	st := &model.UserStats{UsersByTimezone: map[string]int{}}
	const counts = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_active),
       COUNT(*) FILTER (WHERE is_active AND COALESCE(leetcode_username,'') <> '')
  FROM users;`
	if err := ex.QueryRow(ctx, counts).Scan(&st.TotalUsers, &st.ActiveUsers, &st.UsersWithUsername); err != nil {
		return nil, mapErr(err)
	}
	st.InactiveUsers = st.TotalUsers - st.ActiveUsers

	rows, err := ex.Query(ctx, `SELECT COALESCE(NULLIF(timezone,''),'Unknown'), COUNT(*) FROM users WHERE is_active GROUP BY 1;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var tz string
		var n int
		if err := rows.Scan(&tz, &n); err != nil {
			return nil, mapErr(err)
		}
		st.UsersByTimezone[tz] = n
	}
	return st, mapErr(rows.Err())
}

func (r *UserRepo) Ping(ctx context.Context) error {
	return mapErr(r.pool.Ping(ctx))
}

func (r *UserRepo) exec(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, args...); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *UserRepo) query(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.UserRecord, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err())
}

func scanUser(row pgx.Row) (*model.UserRecord, error) {
	var (
		u        model.UserRecord
		times    string
		lastSeen *time.Time
	)
	if err := row.Scan(&u.ID, &u.TelegramID, &u.TelegramUsername, &u.FirstName, &u.LastName,
		&u.ExternalUsername, &u.Timezone, &times, &u.CreatedAt, &u.UpdatedAt, &lastSeen, &u.Active); err != nil {
		return nil, err
	}
	u.LastActiveAt = lastSeen
	u.RemindTimes = []string{}
	if times != "" {
		var raw []string
		if err := json.Unmarshal([]byte(times), &raw); err != nil {
			return nil, fmt.Errorf("decode remind_times for %d: %w", u.TelegramID, err)
		}
		u.RemindTimes = model.FilterRemindTimes(raw)
	}
	return &u, nil
}
