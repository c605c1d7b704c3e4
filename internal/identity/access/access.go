// Package access holds the role-based authorization decision. It is a pure
// capability check composed in front of every protected operation; it has no
// side effects and does no I/O.
package access

import (
	"fmt"

	"certledger/internal/identity/models"
	dErrors "certledger/pkg/domain-errors"
)

// Identity is a validated caller: the token checked out and the account was
// loaded from the store at token-consumption time.
type Identity struct {
	Username string
	Email    string
	Role     models.Role
	Active   bool
}

// AnyRole requires only an authenticated, active identity.
const AnyRole models.Role = ""

// Authorize decides whether the identity may perform an operation requiring
// the given role. Admin satisfies any role requirement. An inactive account is
// rejected regardless of role; an absent identity is rejected before any role
// check runs.
func Authorize(identity *Identity, required models.Role) error {
	if identity == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !identity.Active {
		return dErrors.New(dErrors.CodeInactive, "account is deactivated")
	}
	if required == AnyRole {
		return nil
	}
	if identity.Role == required || identity.Role == models.RoleAdmin {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("operation requires %s role", required))
}
