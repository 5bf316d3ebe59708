package middlewares

import (
	errprocess "old_vibes/pkg/err"
	"old_vibes/pkg/response"
	t_token "old_vibes/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenUsername get username form token, set c.locals name
	TokenUsername = "Username"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// ExtractToken read token from Authorization header, then query, then cookie
func ExtractToken(c *fiber.Ctx) string {
	if tokenStr := t_token.TrimBearer(c.Get(fiber.HeaderAuthorization)); tokenStr != "" {
		return tokenStr
	}
	if tokenStr := c.Query(QueryToken); tokenStr != "" {
		return tokenStr
	}
	return c.Cookies(CookieToken)
}

// JWTMiddleware validates JWT and sets the caller identity in c.Locals
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ExtractToken(c)
		if tokenStr == "" {
			return response.Error(c, errprocess.Authentication("missing token", nil))
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return response.Error(c, errprocess.Authentication("invalid token", err))
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenUsername, claims.Username)
		c.Locals(TokenRole, claims.Role)

		return c.Next()
	}
}

// MemberID caller id set by JWTMiddleware
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}
