package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/domain"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "cli-secret")
	t.Setenv("PRIMARY_ADMINS", "100")

	out, err := execute(t, "", "token", "--identity", "100", "--hint", "@arman")
	require.NoError(t, err)

	claims, err := auth.NewTokenManager("cli-secret", 5).ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("100"), claims.Identity)
	assert.Equal(t, domain.RolePrimaryAdmin, claims.Role)
	assert.Equal(t, "@arman", claims.Hint)
}

func TestHashSecretCommand(t *testing.T) {
	out, err := execute(t, "issuer\n", "hash-secret", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, auth.VerifySecret(strings.TrimSpace(out), "issuer"))

	_, err = execute(t, "\n", "hash-secret", "--cost", "4")
	assert.Error(t, err)
}
