package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mind-reader-backend/internal/domain"
	"mind-reader-backend/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UserRepo         = (*Postgres)(nil)
	_ domain.AnalysisRepo     = (*Postgres)(nil)
	_ domain.FriendRepo       = (*Postgres)(nil)
	_ domain.NotificationRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Create реализует domain.UserRepo.
func (p *Postgres) Create(ctx context.Context, user domain.User) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (id, email, username, password_hash, profile_image)
VALUES ($1, $2, $3, $4, NULLIF($5,''))
RETURNING created_at
`, user.ID, user.Email, user.Username, user.PasswordHash, user.ProfileImage).Scan(&user.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user    domain.User
		image   sql.NullString
		tgChat  sql.NullInt64
	)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &image, &tgChat, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	user.ProfileImage = image.String
	if tgChat.Valid {
		user.TGChatID = &tgChat.Int64
	}
	return user, nil
}

const userColumns = `id, email, username, password_hash, profile_image, tg_chat_id, created_at`

// GetByID реализует domain.UserRepo.
func (p *Postgres) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	user, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	metrics.ObserveNetworkRequest("postgres", "users_get", "users", start, err)
	return user, err
}

// GetByEmail реализует domain.UserRepo.
func (p *Postgres) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	user, err := scanUser(p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	metrics.ObserveNetworkRequest("postgres", "users_get_by_email", "users", start, err)
	return user, err
}

// UpdateProfile реализует domain.UserRepo.
func (p *Postgres) UpdateProfile(ctx context.Context, id uuid.UUID, username, profileImage string) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	user, err := scanUser(p.pool.QueryRow(ctx, `
UPDATE users
SET username = COALESCE(NULLIF($2,''), username),
    profile_image = COALESCE(NULLIF($3,''), profile_image)
WHERE id = $1
RETURNING `+userColumns, id, username, profileImage))
	metrics.ObserveNetworkRequest("postgres", "users_update_profile", "users", start, err)
	return user, err
}

// UsernameTaken реализует domain.UserRepo.
func (p *Postgres) UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var taken bool
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)
`, username, exclude).Scan(&taken)
	metrics.ObserveNetworkRequest("postgres", "users_username_taken", "users", start, err)
	return taken, err
}

// Search реализует domain.UserRepo: поиск по имени и e-mail.
func (p *Postgres) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]domain.UserInfo, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, username, email, COALESCE(profile_image, '')
FROM users
WHERE id <> $2 AND (username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY username
LIMIT $3
`, query, exclude, limit)
	metrics.ObserveNetworkRequest("postgres", "users_search", "users", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserInfos(rows)
}

func scanUserInfos(rows pgx.Rows) ([]domain.UserInfo, error) {
	var infos []domain.UserInfo
	for rows.Next() {
		var info domain.UserInfo
		if err := rows.Scan(&info.ID, &info.Username, &info.Email, &info.ProfileImage); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Save реализует domain.AnalysisRepo.
func (p *Postgres) Save(ctx context.Context, analysis domain.Analysis) (domain.Analysis, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO analyses (id, user_id, text, translated_text, positive, neutral, negative, label, score)
VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7, $8, $9)
RETURNING created_at
`, analysis.ID, analysis.UserID, analysis.Text, analysis.TranslatedText,
		analysis.Sentiment.Positive, analysis.Sentiment.Neutral, analysis.Sentiment.Negative,
		analysis.Label, analysis.Score).Scan(&analysis.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "analyses_insert", "analyses", start, err)
	if err != nil {
		return domain.Analysis{}, err
	}
	return analysis, nil
}

const analysisColumns = `id, user_id, text, COALESCE(translated_text, ''), positive, neutral, negative, label, score, created_at`

func scanAnalyses(rows pgx.Rows) ([]domain.Analysis, error) {
	var out []domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		err := rows.Scan(&a.ID, &a.UserID, &a.Text, &a.TranslatedText,
			&a.Sentiment.Positive, &a.Sentiment.Neutral, &a.Sentiment.Negative,
			&a.Label, &a.Score, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByUser реализует domain.AnalysisRepo: записи пользователя, новые первыми.
func (p *Postgres) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Analysis, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+analysisColumns+` FROM analyses WHERE user_id = $1 ORDER BY created_at DESC
`, userID)
	metrics.ObserveNetworkRequest("postgres", "analyses_list", "analyses", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// ListRange реализует domain.AnalysisRepo: записи в интервале времени.
func (p *Postgres) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Analysis, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+analysisColumns+`
FROM analyses
WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
ORDER BY created_at
`, userID, from, to)
	metrics.ObserveNetworkRequest("postgres", "analyses_list_range", "analyses", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// Delete реализует domain.AnalysisRepo. Проверка владельца входит в фильтр
// удаления, а не выполняется отдельным чтением.
func (p *Postgres) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, ownerID)
	metrics.ObserveNetworkRequest("postgres", "analyses_delete", "analyses", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListFriends реализует domain.FriendRepo.
func (p *Postgres) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT u.id, u.username, u.email, COALESCE(u.profile_image, '')
FROM friendships f
JOIN users u ON u.id = f.friend_id
WHERE f.user_id = $1
ORDER BY u.username
`, userID)
	metrics.ObserveNetworkRequest("postgres", "friends_list", "friendships", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserInfos(rows)
}

// ListFriendIDs реализует domain.FriendRepo.
func (p *Postgres) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT friend_id FROM friendships WHERE user_id = $1`, userID)
	metrics.ObserveNetworkRequest("postgres", "friends_list_ids", "friendships", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AreFriends реализует domain.FriendRepo.
func (p *Postgres) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var ok bool
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)
`, userID, otherID).Scan(&ok)
	metrics.ObserveNetworkRequest("postgres", "friends_check", "friendships", start, err)
	return ok, err
}

// ListIncomingRequests реализует domain.FriendRepo.
func (p *Postgres) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT u.id, u.username, u.email, COALESCE(u.profile_image, '')
FROM friend_requests r
JOIN users u ON u.id = r.from_id
WHERE r.to_id = $1
ORDER BY r.created_at DESC
`, userID)
	metrics.ObserveNetworkRequest("postgres", "friend_requests_incoming", "friend_requests", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserInfos(rows)
}

// ListSentRequests реализует domain.FriendRepo.
func (p *Postgres) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]domain.UserInfo, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT u.id, u.username, u.email, COALESCE(u.profile_image, '')
FROM friend_requests r
JOIN users u ON u.id = r.to_id
WHERE r.from_id = $1
ORDER BY r.created_at DESC
`, userID)
	metrics.ObserveNetworkRequest("postgres", "friend_requests_sent", "friend_requests", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserInfos(rows)
}

// CreateRequest реализует domain.FriendRepo.
func (p *Postgres) CreateRequest(ctx context.Context, fromID, toID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO friend_requests (from_id, to_id) VALUES ($1, $2) ON CONFLICT DO NOTHING
`, fromID, toID)
	metrics.ObserveNetworkRequest("postgres", "friend_requests_insert", "friend_requests", start, err)
	return err
}

// HasRequest реализует domain.FriendRepo.
func (p *Postgres) HasRequest(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var ok bool
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_id = $1 AND to_id = $2)
`, fromID, toID).Scan(&ok)
	metrics.ObserveNetworkRequest("postgres", "friend_requests_check", "friend_requests", start, err)
	return ok, err
}

// DeleteRequest реализует domain.FriendRepo.
func (p *Postgres) DeleteRequest(ctx context.Context, fromID, toID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM friend_requests WHERE from_id = $1 AND to_id = $2`, fromID, toID)
	metrics.ObserveNetworkRequest("postgres", "friend_requests_delete", "friend_requests", start, err)
	return err
}

// AddFriendship реализует domain.FriendRepo: дружба симметрична, пишутся
// обе строки в одной транзакции.
func (p *Postgres) AddFriendship(ctx context.Context, userID, friendID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "friendships", start, err)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1) ON CONFLICT DO NOTHING
`, userID, friendID); err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return tx.Commit(ctx)
}

// RemoveFriendship реализует domain.FriendRepo.
func (p *Postgres) RemoveFriendship(ctx context.Context, userID, friendID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
DELETE FROM friendships
WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
`, userID, friendID)
	metrics.ObserveNetworkRequest("postgres", "friendships_delete", "friendships", start, err)
	return err
}

// CreateNotification реализует domain.NotificationRepo.
func (p *Postgres) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO notifications (id, recipient_id, sender_id, type, mood_value, text_excerpt)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''))
RETURNING created_at
`, n.ID, n.Recipient, n.Sender, n.Type, n.MoodValue, n.TextExcerpt).Scan(&n.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "notifications_insert", "notifications", start, err)
	if err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// CreateBatch реализует domain.NotificationRepo.
func (p *Postgres) CreateBatch(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, n := range ns {
		id := n.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(`
INSERT INTO notifications (id, recipient_id, sender_id, type, mood_value, text_excerpt)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''))
`, id, n.Recipient, n.Sender, n.Type, n.MoodValue, n.TextExcerpt)
	}
	start := time.Now()
	err := p.pool.SendBatch(ctx, batch).Close()
	metrics.ObserveNetworkRequest("postgres", "notifications_insert_batch", "notifications", start, err)
	return err
}

// ListByRecipient реализует domain.NotificationRepo, новые первыми,
// с карточкой отправителя.
func (p *Postgres) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]domain.Notification, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT n.id, n.recipient_id, n.sender_id, n.type, n.mood_value, COALESCE(n.text_excerpt, ''),
       n.read, n.created_at,
       u.username, u.email, COALESCE(u.profile_image, '')
FROM notifications n
JOIN users u ON u.id = n.sender_id
WHERE n.recipient_id = $1
ORDER BY n.created_at DESC
`, recipientID)
	metrics.ObserveNetworkRequest("postgres", "notifications_list", "notifications", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n      domain.Notification
			sender domain.UserInfo
		)
		err := rows.Scan(&n.ID, &n.Recipient, &n.Sender, &n.Type, &n.MoodValue, &n.TextExcerpt,
			&n.Read, &n.CreatedAt, &sender.Username, &sender.Email, &sender.ProfileImage)
		if err != nil {
			return nil, err
		}
		sender.ID = n.Sender
		n.SenderInfo = &sender
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead реализует domain.NotificationRepo.
func (p *Postgres) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2
`, id, recipientID)
	metrics.ObserveNetworkRequest("postgres", "notifications_mark_read", "notifications", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAllRead реализует domain.NotificationRepo.
func (p *Postgres) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1`, recipientID)
	metrics.ObserveNetworkRequest("postgres", "notifications_mark_all_read", "notifications", start, err)
	return err
}

// ExistsRecent реализует domain.NotificationRepo: было ли уведомление того же
// типа от того же отправителя позже указанного момента.
func (p *Postgres) ExistsRecent(ctx context.Context, recipientID, senderID uuid.UUID, typ string, since time.Time) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var ok bool
	err := p.pool.QueryRow(ctx, `
SELECT EXISTS(
    SELECT 1 FROM notifications
    WHERE recipient_id = $1 AND sender_id = $2 AND type = $3 AND created_at >= $4
)
`, recipientID, senderID, typ, since).Scan(&ok)
	metrics.ObserveNetworkRequest("postgres", "notifications_exists_recent", "notifications", start, err)
	return ok, err
}
