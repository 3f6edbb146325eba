// Package portal mounts the screens of the member portal: login, event registration and competition submission.
// Each screen is a wizard whose final step runs a backend operation, bounded by the configured timeout and retry policy.
package portal

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/form"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/team"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
)

// Deps are the collaborators of the portal Service.
type Deps struct {
	Conf          core.PortalConfig
	Validator     *form.Validator
	Storage       upload.Storage
	Mailer        core.EmailService
	Logger        core.Logger
	Registry      *Registry
	Members       member.Service
	Events        event.Service
	Competitions  competition.Service
	Teams         team.Service
	Notifications notification.Service
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

func (svc *Service) Registry() *Registry { return svc.deps.Registry }

// backend bounds op with the configured timeout and retry policy, after the simulated latency.
func (svc *Service) backend(delay time.Duration, op async.Operation) async.Operation {
	conf := svc.deps.Conf
	op = async.WithTimeout(conf.OperationTimeout, async.Delay(delay, op))
	return async.WithRetry(async.RetryPolicy{Attempts: conf.OperationRetries + 1, Backoff: conf.RetryBackoff}, op)
}

func stringValue(values map[string]interface{}, name string) string {
	s, _ := values[name].(string)
	return core.CleanString(s)
}

// TokenFunc signs the session token of an authenticated member.
type TokenFunc func(member.Member) (string, error)

type LoginResult struct {
	Member member.Member `json:"member"`
	Token  string        `json:"token"`
}

// Login runs the login flow to completion. Invalid fields return a *core.ValidationError;
// wrong credentials return member.ErrAuthenticationFailed and are not retried.
func (svc *Service) Login(ctx context.Context, memberID, password string, token TokenFunc) (LoginResult, error) {
	scope := async.NewScope(ctx)
	defer scope.Close()

	m, err := wizard.New(loginFlow, wizard.Options{
		Validator: svc.deps.Validator,
		Scope:     scope,
		Submit: func(values map[string]interface{}) async.Operation {
			login := stringValue(values, fldMemberID)
			pwd, _ := values[fldPassword].(string)
			return svc.backend(svc.deps.Conf.LoginDelay, async.OperationFunc(func(ctx context.Context) (interface{}, error) {
				mbr, err := svc.deps.Members.Authenticate(ctx, login, pwd)
				if err != nil {
					if cause := errors.Cause(err); cause == member.ErrAuthenticationFailed || cause == member.ErrAccountDeactivated {
						return nil, async.Permanent(err)
					}
					return nil, err
				}
				tok, err := token(mbr)
				if err != nil {
					return nil, async.Permanent(errors.Wrap(err, "generating token"))
				}
				return LoginResult{Member: mbr, Token: tok}, nil
			}))
		},
	})
	if err != nil {
		return LoginResult{}, errors.Wrap(err, "creating login flow")
	}

	if err = m.Set(map[string]interface{}{fldMemberID: memberID, fldPassword: password}); err != nil {
		return LoginResult{}, err
	}
	if err = m.Advance(); err != nil {
		return LoginResult{}, errors.Cause(err)
	}
	if err = m.Wait(ctx); err != nil {
		return LoginResult{}, err
	}
	res, _ := m.Result().(LoginResult)
	return res, nil
}

func (svc *Service) mount(kind Kind, owner string, subject interface{}, flow func(*async.Scope) (wizard.Flow, wizard.SubmitFunc, *upload.Tracker)) (*Screen, error) {
	scope := async.NewScope(context.Background())
	f, submit, tracker := flow(scope)
	m, err := wizard.New(f, wizard.Options{
		Validator: svc.deps.Validator,
		Scope:     scope,
		Submit:    submit,
	})
	if err != nil {
		scope.Close()
		return nil, errors.Wrap(err, "creating "+f.Name+" flow")
	}
	s := &Screen{
		id:      uuid.New().String(),
		kind:    kind,
		owner:   owner,
		subject: subject,
		scope:   scope,
		machine: m,
		tracker: tracker,
	}
	svc.deps.Registry.add(s)
	return s, nil
}

// OpenRegistration mounts the registration screen of an event, prefilled with the member's details.
func (svc *Service) OpenRegistration(ctx context.Context, owner member.Member, eventID string) (*Screen, error) {
	evt, err := svc.deps.Events.Get(ctx, eventID, owner.ID)
	if err != nil {
		return nil, err
	}
	if evt.Registered {
		return nil, event.ErrAlreadyRegistered
	}
	if !evt.RegistrationOpen(core.Now()) {
		return nil, event.ErrRegistrationClosed
	}

	s, err := svc.mount(KindRegistration, owner.ID, evt, func(*async.Scope) (wizard.Flow, wizard.SubmitFunc, *upload.Tracker) {
		return registrationFlow, svc.register(evt, owner), nil
	})
	if err != nil {
		return nil, err
	}
	err = s.SetFields(map[string]interface{}{
		fldFullName:      owner.Name,
		fldEmail:         owner.Email,
		fldInstitution:   owner.Institution,
		fldPaymentMethod: defaultPaymentMethod,
	})
	if err != nil {
		_ = svc.deps.Registry.Close(s.id, s.owner)
		return nil, errors.Wrap(err, "prefilling registration")
	}
	return s, nil
}

func (svc *Service) register(evt event.Event, owner member.Member) wizard.SubmitFunc {
	return func(values map[string]interface{}) async.Operation {
		reg := event.Registration{
			EventID:       evt.ID,
			MemberID:      owner.ID,
			FullName:      stringValue(values, fldFullName),
			Email:         core.CleanString(stringValue(values, fldEmail), true /* lower */),
			Phone:         stringValue(values, fldPhone),
			Institution:   stringValue(values, fldInstitution),
			SaeID:         stringValue(values, fldSaeID),
			PaymentMethod: stringValue(values, fldPaymentMethod),
		}
		if name := stringValue(values, fldTeamName); name != "" {
			reg.TeamName = null.StringFrom(name)
		}
		if size, ok := values[fldTeamSize].(float64); ok {
			reg.TeamSize = null.IntFrom(int(size))
		}

		payment := async.Delay(svc.deps.Conf.PaymentDelay, nil)
		return svc.backend(svc.deps.Conf.SubmitDelay, async.OperationFunc(func(ctx context.Context) (interface{}, error) {
			if _, err := payment.Run(ctx); err != nil {
				return nil, errors.Wrap(err, "processing payment")
			}
			created, err := svc.deps.Events.Register(ctx, reg)
			switch errors.Cause(err) {
			case nil:
			case event.ErrAlreadyRegistered, event.ErrRegistrationClosed, event.ErrNotFound:
				return nil, async.Permanent(err)
			default:
				return nil, errors.Wrap(err, "registering")
			}

			svc.notify(ctx, owner, notification.Notification{
				Title:    "Registration Confirmed",
				Message:  fmt.Sprintf("You are registered for %s.", evt.Title),
				Type:     notification.TypeAnnouncement,
				Link:     "/dashboard/events/" + evt.ID,
				LinkText: "View event",
			})
			svc.deps.Mailer.SendMessages(&core.EmailMessage{
				To:           []mail.Address{{Name: created.FullName, Address: created.Email}},
				Subject:      "Registration Confirmed: " + evt.Title,
				TemplateName: "registration_confirmed",
				TemplateData: map[string]interface{}{
					"FullName":       created.FullName,
					"EventTitle":     evt.Title,
					"RegistrationID": created.ID,
					"PaymentMethod":  created.PaymentMethod,
					"Amount":         fmt.Sprintf("%.2f %s", created.Amount, evt.Currency),
				},
			})
			return created, nil
		}))
	}
}

// OpenSubmission mounts the submission screen of a deadline; teamID is optional.
func (svc *Service) OpenSubmission(ctx context.Context, owner member.Member, deadlineID, teamID string) (*Screen, error) {
	dl, err := svc.deps.Competitions.GetDeadline(ctx, deadlineID)
	if err != nil {
		return nil, err
	}
	if !dl.AcceptsAt(core.Now()) {
		return nil, competition.ErrDeadlinePassed
	}
	if teamID != "" {
		t, err := svc.deps.Teams.Get(ctx, teamID)
		if err != nil {
			return nil, err
		}
		if !t.HasMember(owner.ID) {
			return nil, team.ErrNotFound
		}
	}

	conf := svc.deps.Conf
	return svc.mount(KindSubmission, owner.ID, dl, func(scope *async.Scope) (wizard.Flow, wizard.SubmitFunc, *upload.Tracker) {
		tracker := upload.NewTracker(dl.Rule(), svc.deps.Storage, scope, upload.TrackerOptions{
			Wrap: func(op async.Operation) async.Operation {
				return async.WithTimeout(conf.OperationTimeout, op)
			},
		})
		return submissionFlow(tracker), svc.submit(dl, owner, teamID, tracker), tracker
	})
}

func (svc *Service) submit(dl competition.Deadline, owner member.Member, teamID string, tracker *upload.Tracker) wizard.SubmitFunc {
	return func(values map[string]interface{}) async.Operation {
		ns := competition.NewSubmission{
			DeadlineID:  dl.ID,
			MemberID:    owner.ID,
			TeamID:      teamID,
			Title:       stringValue(values, fldTitle),
			Description: stringValue(values, fldDescription),
			Files:       tracker.Completed(),
		}
		return svc.backend(svc.deps.Conf.SubmitDelay, async.OperationFunc(func(ctx context.Context) (interface{}, error) {
			sub, err := svc.deps.Competitions.Submit(ctx, ns)
			switch errors.Cause(err) {
			case nil:
			case competition.ErrDeadlinePassed, competition.ErrNoFiles, competition.ErrDeadlineNotFound:
				return nil, async.Permanent(err)
			default:
				return nil, errors.Wrap(err, "submitting")
			}

			svc.notify(ctx, owner, notification.Notification{
				Title:    "Submission Received",
				Message:  fmt.Sprintf("Your submission %q for %s is pending review.", sub.Title, sub.CompetitionName),
				Type:     notification.TypeAnnouncement,
				Link:     "/dashboard/submissions/" + sub.ID,
				LinkText: "View submission",
			})
			svc.deps.Mailer.SendMessages(&core.EmailMessage{
				To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
				Subject:      "Submission Received: " + sub.Title,
				TemplateName: "submission_received",
				TemplateData: map[string]interface{}{
					"MemberName":      owner.Name,
					"Title":           sub.Title,
					"CompetitionName": sub.CompetitionName,
					"DeadlineTitle":   sub.DeadlineTitle,
					"Files":           sub.Files,
				},
			})
			return sub, nil
		}))
	}
}

// notify does not fail the operation: the registration or submission is already stored.
func (svc *Service) notify(ctx context.Context, owner member.Member, n notification.Notification) {
	n.MemberID = owner.ID
	if _, err := svc.deps.Notifications.Create(ctx, n); err != nil {
		svc.deps.Logger.Error(fmt.Sprintf("creating notification: %v", err), errors.Wrap(err, "creating notification"), owner)
	}
}

// Screen returns an open screen of owner.
func (svc *Service) Screen(id, owner string) (*Screen, error) {
	return svc.deps.Registry.Get(id, owner)
}

// CloseScreen unmounts a screen of owner.
func (svc *Service) CloseScreen(id, owner string) error {
	return svc.deps.Registry.Close(id, owner)
}
