package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestProtected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Get("/me", Protected(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"email":   c.Locals("email"),
		})
	})

	get := func(t *testing.T, authorization string) int {
		t.Helper()
		req := httptest.NewRequest("GET", "/me", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	t.Run("valid token passes", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": float64(7), "email": "ama@example.com"}, "test-secret")
		assert.Equal(t, fiber.StatusOK, get(t, "Bearer "+token))
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, get(t, ""))
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, get(t, "Bearer not-a-token"))
	})

	t.Run("wrong signing secret is rejected", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": float64(7), "email": "ama@example.com"}, "another-secret")
		assert.Equal(t, fiber.StatusUnauthorized, get(t, "Bearer "+token))
	})

	t.Run("signed token without user_id is rejected", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"email": "ama@example.com"}, "test-secret")
		assert.Equal(t, fiber.StatusUnauthorized, get(t, "Bearer "+token))
	})

	t.Run("signed token with wrongly typed user_id is rejected", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": "7", "email": "ama@example.com"}, "test-secret")
		assert.Equal(t, fiber.StatusUnauthorized, get(t, "Bearer "+token))
	})

	t.Run("signed token without email is rejected", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": float64(7)}, "test-secret")
		assert.Equal(t, fiber.StatusUnauthorized, get(t, "Bearer "+token))
	})
}
