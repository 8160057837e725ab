package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/service"
)

var (
	tokenIdentity string
	tokenHint     string
	hashCost      int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed identity token",
	Long: `Print a signed identity token for a participant. The token is accepted by
the websocket gateway and the HTTP API.`,
	RunE: runToken,
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret",
	Short: "Hash a token issuer secret read from stdin",
	Long: `Read a secret from stdin and print its bcrypt hash, suitable for
AUTH_ISSUER_SECRET_HASH.`,
	RunE: runHashSecret,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenIdentity, "identity", "", "participant identity")
	tokenCmd.Flags().StringVar(&tokenHint, "hint", "", "public username shown to admins")
	_ = tokenCmd.MarkFlagRequired("identity")

	hashSecretCmd.Flags().IntVar(&hashCost, "cost", 12, "bcrypt cost")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	svc := service.NewAuthService(cfg.Auth, tokens, directory.New(cfg.Directory), zap.NewNop())

	token, meta, err := svc.Mint(domain.Identity(tokenIdentity), tokenHint)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, token)
	fmt.Fprintf(cmd.ErrOrStderr(), "role=%s expires=%s\n", meta.Role, meta.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func runHashSecret(cmd *cobra.Command, _ []string) error {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	secret := strings.TrimSpace(line)
	if secret == "" {
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		return errors.New("empty secret")
	}
	hash, err := auth.HashSecret(secret, hashCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
