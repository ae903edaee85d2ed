// Package httpapi exposes SPEC_FULL.md §6's HTTP surface over
// gofiber/fiber/v2, following the teacher's adapters/http/in
// package-per-resource layout and pkg/httpjson response conventions.
package httpapi

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/pkg/apperr"
)

// AuthResolver resolves a bearer token to a userId. The KYC/session system
// itself is out of scope (SPEC_FULL.md §6); callers inject whichever
// resolver fits their deployment.
type AuthResolver interface {
	Resolve(tokenString string) (userID string, err error)
}

// JWTResolver resolves bearer tokens signed with a shared HMAC secret.
type JWTResolver struct {
	Secret string
}

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Resolve implements AuthResolver.
func (r *JWTResolver) Resolve(tokenString string) (string, error) {
	var c claims

	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return []byte(r.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", apperr.UnauthorizedError{Code: "LED-0019", Title: "Invalid Token", Message: "The bearer token could not be verified."}
	}

	if c.UserID == "" {
		return "", apperr.UnauthorizedError{Code: "LED-0019", Title: "Invalid Token", Message: "The bearer token carries no userId claim."}
	}

	return c.UserID, nil
}

// authenticate extracts and resolves the bearer token from the Authorization
// header, storing the resulting userId on the fiber context's locals.
func authenticate(resolver AuthResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apperr.UnauthorizedError{Code: "LED-0020", Title: "Missing Bearer Token", Message: "An Authorization: Bearer <token> header is required."}
		}

		userID, err := resolver.Resolve(token)
		if err != nil {
			return err
		}

		c.Locals("userId", userID)

		return c.Next()
	}
}

func userIDFromContext(c *fiber.Ctx) string {
	userID, _ := c.Locals("userId").(string)
	return userID
}

// MockResolver resolves any non-empty bearer token to a fixed userId,
// for tests and local/dev bootstrap without a real JWT issuer.
type MockResolver struct {
	UserID string
}

// Resolve implements AuthResolver.
func (r *MockResolver) Resolve(tokenString string) (string, error) {
	if tokenString == "" {
		return "", apperr.UnauthorizedError{Code: "LED-0019", Title: "Invalid Token", Message: "empty bearer token"}
	}

	return r.UserID, nil
}
