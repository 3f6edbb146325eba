// Package notification is the member's notification centre.
package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeDeadline     Type = "deadline"
	TypeAnnouncement Type = "announcement"
	TypeReminder     Type = "reminder"
	TypeFeedback     Type = "feedback"
)

// Tabs of the notification centre.
const (
	TabAll           = "all"
	TabDeadlines     = "deadlines"
	TabAnnouncements = "announcements"
)

// PreviewSize is the number of unread notifications shown in the navbar preview.
const PreviewSize = 3

// TabTypes returns the notification types shown in `tab`; nil means all.
func TabTypes(tab string) ([]Type, error) {
	switch tab {
	case "", TabAll:
		return nil, nil
	case TabDeadlines:
		return []Type{TypeDeadline, TypeReminder}, nil
	case TabAnnouncements:
		return []Type{TypeAnnouncement, TypeFeedback}, nil
	}
	return nil, core.NewValidationError(core.ErrInvalidInput, core.FieldError{
		Field: "tab",
		Error: "tab must be one of [all deadlines announcements]",
	})
}

type Notification struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
	Link      string    `json:"link,omitempty"`
	LinkText  string    `json:"link_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type QueryFilter struct {
	MemberID   string
	Types      []Type
	UnreadOnly bool
}

type (
	Repository interface {
		QueryNotifications(ctx context.Context, filter QueryFilter, page core.Page) ([]Notification, int, error)
		CountUnread(ctx context.Context, memberID string) (int, error)
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// MarkRead marks the member's notifications `ids`, or all of them when none, as read.
		MarkRead(ctx context.Context, memberID string, ids ...string) (int, error)
		DeleteNotification(ctx context.Context, memberID, id string) error
	}

	Service interface {
		List(ctx context.Context, memberID, tab string, page core.Page) ([]Notification, int, error)
		UnreadCount(ctx context.Context, memberID string) (int, error)
		Preview(ctx context.Context, memberID string) ([]Notification, error)
		Create(ctx context.Context, n Notification) (Notification, error)
		MarkRead(ctx context.Context, memberID, id string) error
		MarkAllRead(ctx context.Context, memberID string) (int, error)
		Delete(ctx context.Context, memberID, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// List returns a page of the member's notifications in `tab`, newest first.
func (svc *service) List(ctx context.Context, memberID, tab string, page core.Page) ([]Notification, int, error) {
	types, err := TabTypes(tab)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	ns, total, err := svc.repo.QueryNotifications(ctx, QueryFilter{MemberID: memberID, Types: types}, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying notifications")
	}
	return ns, total, nil
}

func (svc *service) UnreadCount(ctx context.Context, memberID string) (int, error) {
	count, err := svc.repo.CountUnread(ctx, memberID)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

// Preview returns the newest unread notifications, at most PreviewSize.
func (svc *service) Preview(ctx context.Context, memberID string) ([]Notification, error) {
	ns, _, err := svc.repo.QueryNotifications(
		ctx,
		QueryFilter{MemberID: memberID, UnreadOnly: true},
		core.Page{Number: 1, Size: PreviewSize},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying unread notifications")
	}
	return ns, nil
}

func (svc *service) Create(ctx context.Context, n Notification) (Notification, error) {
	n.Title = core.CleanString(n.Title)
	n.Message = core.CleanString(n.Message)
	n.Read = false
	n.CreatedAt = core.Now()
	return svc.repo.CreateNotification(ctx, n)
}

func (svc *service) MarkRead(ctx context.Context, memberID, id string) error {
	n, err := svc.repo.MarkRead(ctx, memberID, id)
	if err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the member as read and returns how many were unread.
func (svc *service) MarkAllRead(ctx context.Context, memberID string) (int, error) {
	n, err := svc.repo.MarkRead(ctx, memberID)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications as read")
	}
	return n, nil
}

func (svc *service) Delete(ctx context.Context, memberID, id string) error {
	return svc.repo.DeleteNotification(ctx, memberID, id)
}
