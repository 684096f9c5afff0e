package domain

import "errors"

// Operator roles carried in JWT claims. Tokens are issued by the external
// identity service; this engine only verifies them.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

var ErrForbidden = errors.New("access forbidden")
