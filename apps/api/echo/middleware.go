package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/member"
)

// adminMiddleware lets through active members holding the admin role.
// The stored member is checked, not the token claims: a revoked admin is refused before the token expires.
func adminMiddleware(svc member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}
			if !m.IsActive {
				return member.ErrAccountDeactivated
			}
			if !m.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
