package auth

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller, extracted once from the verified
// JWT and passed by value into services. Handlers never stash ad hoc
// fields on the request after this point.
type Identity struct {
	UserID int
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// FromCtx reads the identity out of the token that the JWT middleware
// stored under the "user" local.
func FromCtx(c *fiber.Ctx) (Identity, error) {
	u := c.Locals("user")
	if u == nil {
		return Identity{}, fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return Identity{}, fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fiber.ErrUnauthorized
	}

	ident := Identity{Role: RoleUser}
	if raw, ok := claims["role"].(string); ok && raw != "" {
		ident.Role = raw
	}

	raw, ok := claims["user_id"]
	if !ok {
		return Identity{}, fiber.ErrUnauthorized
	}
	switch v := raw.(type) {
	case float64:
		ident.UserID = int(v)
	case int:
		ident.UserID = v
	case int64:
		ident.UserID = int(v)
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return Identity{}, fiber.ErrUnauthorized
		}
		ident.UserID = id
	default:
		return Identity{}, fiber.ErrUnauthorized
	}
	if ident.UserID <= 0 {
		return Identity{}, fiber.ErrUnauthorized
	}
	return ident, nil
}
