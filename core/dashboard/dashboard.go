// Package dashboard aggregates a member's home page.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/team"
)

// UpcomingSize is the number of registered upcoming events shown.
const UpcomingSize = 5

type Summary struct {
	UpcomingEvents      []event.Event                        `json:"upcoming_events"`
	Submissions         map[competition.SubmissionStatus]int `json:"submissions"`
	UnreadNotifications int                                  `json:"unread_notifications"`
	Notifications       []notification.Notification          `json:"notifications"`
	Teams               int                                  `json:"teams"`
}

type Service interface {
	Get(ctx context.Context, memberID string) (Summary, error)
}

type service struct {
	eventSvc        event.Service
	competitionSvc  competition.Service
	notificationSvc notification.Service
	teamSvc         team.Service
}

func NewService(
	eventSvc event.Service,
	competitionSvc competition.Service,
	notificationSvc notification.Service,
	teamSvc team.Service,
) Service {
	return &service{
		eventSvc:        eventSvc,
		competitionSvc:  competitionSvc,
		notificationSvc: notificationSvc,
		teamSvc:         teamSvc,
	}
}

func (svc *service) Get(ctx context.Context, memberID string) (Summary, error) {
	var (
		sum Summary
		err error
	)

	sum.UpcomingEvents, _, err = svc.eventSvc.List(
		ctx,
		event.QueryFilter{RegisteredBy: memberID, Upcoming: true, Viewer: memberID},
		core.Page{Number: 1, Size: UpcomingSize},
	)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing upcoming events")
	}
	if sum.Submissions, err = svc.competitionSvc.CountByStatus(ctx, memberID); err != nil {
		return Summary{}, errors.Wrap(err, "counting submissions")
	}
	if sum.UnreadNotifications, err = svc.notificationSvc.UnreadCount(ctx, memberID); err != nil {
		return Summary{}, errors.Wrap(err, "counting notifications")
	}
	if sum.Notifications, err = svc.notificationSvc.Preview(ctx, memberID); err != nil {
		return Summary{}, errors.Wrap(err, "previewing notifications")
	}
	teams, err := svc.teamSvc.ListForMember(ctx, memberID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing teams")
	}
	sum.Teams = len(teams)
	return sum, nil
}
