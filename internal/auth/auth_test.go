package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, meta, err := tm.GenerateToken("42", domain.RoleUser, "@sara")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("42"), meta.Subject)
	assert.WithinDuration(t, meta.IssuedAt.Add(5*time.Minute), meta.ExpiresAt, time.Second)

	id, hint, err := tm.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("42"), id)
	assert.Equal(t, "@sara", hint)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("42", domain.RoleUser, "")
	require.NoError(t, err)

	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken("42", domain.RoleUser, "")
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresIdentity(t *testing.T) {
	_, _, err := NewTokenManager("secret", 5).GenerateToken("", domain.RoleUser, "")
	assert.Error(t, err)
}

func TestSecretHashing(t *testing.T) {
	hash, err := HashSecret("issuer", 4)
	require.NoError(t, err)
	assert.NoError(t, VerifySecret(hash, "issuer"))
	assert.Error(t, VerifySecret(hash, "guess"))
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "abc", "Basic abc", "Bearer "} {
		_, err := BearerToken(header)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), header)
	}
}

func TestMiddlewareEnforcesTiers(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	dir := directory.New(config.DirectoryConfig{
		PrimaryAdmins:   []string{"100"},
		SecondaryAdmins: []string{"200"},
		SuperAdmin:      "900",
	})
	mw := NewAuthMiddleware(tm, dir)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		if de := apperrors.ToDomainError(err); de != nil {
			return c.SendStatus(de.HTTPStatus)
		}
		return c.SendStatus(http.StatusInternalServerError)
	}})
	app.Get("/primary", mw.Handle, RequireRole(domain.RolePrimaryAdmin), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.Identity.String())
	})

	call := func(identity domain.Identity) int {
		req := httptest.NewRequest(http.MethodGet, "/primary", nil)
		if identity != "" {
			token, _, err := tm.GenerateToken(identity, dir.Classify(identity), "")
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, call("100"))
	assert.Equal(t, http.StatusForbidden, call("200"))
	assert.Equal(t, http.StatusForbidden, call("900"))
	assert.Equal(t, http.StatusUnauthorized, call(""))
}
