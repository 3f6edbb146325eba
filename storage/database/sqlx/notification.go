package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/notification"
)

type notificationRow struct {
	ID        string `db:"id"`
	MemberID  string `db:"member_id"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	Type      string `db:"type"`
	IsRead    bool   `db:"is_read"`
	Link      string `db:"link"`
	LinkText  string `db:"link_text"`
	CreatedAt int64  `db:"created_at"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		MemberID:  r.MemberID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      notification.Type(r.Type),
		Read:      r.IsRead,
		Link:      r.Link,
		LinkText:  r.LinkText,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) QueryNotifications(
	ctx context.Context,
	filter notification.QueryFilter,
	page core.Page,
) ([]notification.Notification, int, error) {
	var w where
	w.add("member_id = ?", filter.MemberID)
	if len(filter.Types) > 0 {
		types := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			types = append(types, string(t))
		}
		w.add("type IN (?)", types)
	}
	if filter.UnreadOnly {
		w.add("is_read = ?", false)
	}

	var rows []notificationRow
	total, err := selectPage(
		ctx, repo.db, &rows,
		"SELECT COUNT(*) FROM notifications"+w.String(), w.args,
		"SELECT * FROM notifications"+w.String()+" ORDER BY created_at DESC, id DESC", w.args,
		page,
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying notifications")
	}

	ns := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.notification())
	}
	return ns, total, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, memberID string) (int, error) {
	var count int
	q := repo.db.Rebind("SELECT COUNT(*) FROM notifications WHERE member_id = ? AND is_read = ?")
	if err := repo.db.GetContext(ctx, &count, q, memberID, false); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = newSortableID()
	row := notificationRow{
		ID:        n.ID,
		MemberID:  n.MemberID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.Read,
		Link:      n.Link,
		LinkText:  n.LinkText,
		CreatedAt: millis(n.CreatedAt),
	}
	q := `INSERT INTO notifications (id, member_id, title, message, type, is_read, link, link_text, created_at)
		VALUES (:id, :member_id, :title, :message, :type, :is_read, :link, :link_text, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

// MarkRead returns the number of matched notifications: with ids, read ones included; without, unread ones only.
func (repo notificationRepository) MarkRead(ctx context.Context, memberID string, ids ...string) (int, error) {
	var w where
	w.add("member_id = ?", memberID)
	if len(ids) > 0 {
		w.add("id IN (?)", ids)
	} else {
		w.add("is_read = ?", false)
	}

	q, args, err := sqlx.In("UPDATE notifications SET is_read = ?"+w.String(), append([]interface{}{true}, w.args...)...)
	if err != nil {
		return 0, errors.Wrap(err, "expanding update query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "updating notifications")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting updated notifications")
	}
	return int(n), nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, memberID, id string) error {
	q := repo.db.Rebind("DELETE FROM notifications WHERE member_id = ? AND id = ?")
	res, err := repo.db.ExecContext(ctx, q, memberID, id)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
