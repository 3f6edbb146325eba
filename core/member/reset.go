package member

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
)

var ErrInvalidResetLink = errors.New("invalid or expired password reset link")

// PasswordResetRequest asks for a reset link to be emailed.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,basic_email"`
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// ResetPassword sets a new password from the uid and token of a reset link.
type ResetPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.UID = core.CleanString(rp.UID)
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}

// PasswordReset emails single-use reset links and applies them.
type PasswordReset struct {
	svc    Service
	mailer core.EmailService
	tokens tokenGenerator
}

func NewPasswordReset(conf *core.Config, svc Service, mailer core.EmailService) *PasswordReset {
	return &PasswordReset{
		svc:    svc,
		mailer: mailer,
		tokens: tokenGenerator{secret: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
	}
}

// Request emails a reset link to the active member owning `email`.
// It returns ErrNotFound for unknown or deactivated members; callers should not disclose it.
func (pr *PasswordReset) Request(ctx context.Context, email string) error {
	m, err := pr.svc.GetByLogin(ctx, email)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return ErrNotFound
	}

	pr.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: m.Name, Address: m.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  m.Name,
			"UID":   EncodeUID(m),
			"Token": pr.tokens.makeToken(m),
			"Days":  fmt.Sprintf("%d", int(pr.tokens.timeout/(24*time.Hour))),
		},
	})
	return nil
}

// Confirm sets the new password when the link is valid and the password meets the policy.
func (pr *PasswordReset) Confirm(ctx context.Context, rp ResetPassword) (Member, error) {
	invalid := core.NewValidationError(ErrInvalidResetLink, core.FieldError{Field: "token", Error: ErrInvalidResetLink.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return Member{}, invalid
	}
	m, err := pr.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Member{}, invalid
		}
		return Member{}, errors.Wrap(err, "getting member")
	}
	if !m.IsActive {
		return Member{}, invalid
	}
	if err = pr.tokens.verifyToken(m, rp.Token); err != nil {
		return Member{}, invalid
	}
	if msg := CheckPassword(rp.Password, m.MemberID, m.Name, m.Email); msg != "" {
		return Member{}, core.NewValidationError(core.ErrInvalidInput, core.FieldError{Field: "password", Error: msg})
	}
	return pr.svc.SetPassword(ctx, m, rp.Password)
}
