package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crmops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opCreateBatch = "notification.inapp.repository.create_batch"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errRepoNotConfigured = "notification repository not configured"
	errUserIDRequired    = "userId is required"
)

type Notification struct {
	ID          uuid.UUID              `json:"id"`
	TenantID    uuid.UUID              `json:"tenantId"`
	UserID      uuid.UUID              `json:"userId"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Type        string                 `json:"type"`
	Priority    string                 `json:"priority"`
	Metadata    map[string]interface{} `json:"metadata"`
	Channels    []string               `json:"channels"`
	Icon        string                 `json:"icon,omitempty"`
	Link        string                 `json:"link,omitempty"`
	TriggeredBy *uuid.UUID             `json:"triggeredBy,omitempty"`
	IsRead      bool                   `json:"isRead"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type CreateParams struct {
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Title       string
	Message     string
	Type        string
	Priority    string
	Metadata    map[string]interface{}
	Channels    []string
	Icon        string
	Link        string
	TriggeredBy *uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, tenant_id, user_id, title, message, type, priority,
	metadata, channels, icon, link, triggered_by, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var metadata []byte
	err := row.Scan(
		&n.ID, &n.TenantID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority,
		&metadata, &n.Channels, &n.Icon, &n.Link, &n.TriggeredBy, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	n.Metadata = map[string]interface{}{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return Notification{}, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	if n.Channels == nil {
		n.Channels = []string{}
	}
	return n, nil
}

func encodeParams(p CreateParams) ([]interface{}, error) {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode notification metadata: %w", err)
	}
	channels := p.Channels
	if channels == nil {
		channels = []string{}
	}
	return []interface{}{
		p.TenantID, p.UserID, p.Title, p.Message, p.Type, p.Priority,
		encoded, channels, p.Icon, p.Link, p.TriggeredBy,
	}, nil
}

const insertNotificationSQL = `
	INSERT INTO notifications
	(tenant_id, user_id, title, message, type, priority, metadata, channels, icon, link, triggered_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + notificationColumns

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.TenantID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation("tenantId and userId are required").WithOp(opCreate)
	}
	if p.Title == "" {
		return Notification{}, apperr.Validation("title is required").WithOp(opCreate)
	}

	args, err := encodeParams(p)
	if err != nil {
		return Notification{}, apperr.Internal(err.Error()).WithOp(opCreate)
	}

	n, err := scanNotification(r.pool.QueryRow(ctx, insertNotificationSQL, args...))
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

// CreateBatch inserts one notification row per params entry in a single
// round trip. The batch is not transactional across rows; each row targets a
// fresh id so there is nothing to contend on.
func (r *Repository) CreateBatch(ctx context.Context, items []CreateParams) ([]Notification, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opCreateBatch)
	}
	if len(items) == 0 {
		return []Notification{}, nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		if item.TenantID == uuid.Nil || item.UserID == uuid.Nil || item.Title == "" {
			return nil, apperr.Validation("tenantId, userId, and title are required for every notification").WithOp(opCreateBatch)
		}
		args, err := encodeParams(item)
		if err != nil {
			return nil, apperr.Internal(err.Error()).WithOp(opCreateBatch)
		}
		batch.Queue(insertNotificationSQL, args...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	created := make([]Notification, 0, len(items))
	for range items {
		n, err := scanNotification(results.QueryRow())
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("batch create notification failed: %v", err)).WithOp(opCreateBatch)
		}
		created = append(created, n)
	}

	return created, nil
}

func (r *Repository) List(ctx context.Context, tenantID, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND is_read = FALSE
	`, tenantID, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, tenantID, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opMarkRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
	`, notificationID, tenantID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}

	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE tenant_id = $1 AND user_id = $2 AND is_read = FALSE
	`, tenantID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}
