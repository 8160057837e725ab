package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// AuthService issues identity tokens to trusted front ends. A front end proves
// itself with the issuer secret; the token then speaks for one participant.
type AuthService struct {
	tokens     *auth.TokenManager
	dir        *directory.Directory
	secretHash string
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, dir *directory.Directory, logger *zap.Logger) *AuthService {
	return &AuthService{
		tokens:     tokens,
		dir:        dir,
		secretHash: cfg.IssuerSecretHash,
		logger:     loggerOrNop(logger),
	}
}

// IssueToken verifies the issuer secret and signs a token for identity.
func (s *AuthService) IssueToken(identity domain.Identity, hint, secret string) (string, *domain.Token, error) {
	if identity == "" {
		return "", nil, apperrors.NewValidationError("identity required", nil)
	}
	if s.secretHash == "" {
		return "", nil, apperrors.NewForbidden("token issuing is disabled")
	}
	if err := auth.VerifySecret(s.secretHash, secret); err != nil {
		s.logger.Warn("token request rejected", zap.String("identity", identity.String()))
		return "", nil, apperrors.NewUnauthenticated("invalid issuer secret")
	}
	return s.Mint(identity, hint)
}

// Mint signs a token without checking the issuer secret. Operators use it
// from the command line.
func (s *AuthService) Mint(identity domain.Identity, hint string) (string, *domain.Token, error) {
	token, meta, err := s.tokens.GenerateToken(identity, s.dir.Classify(identity), hint)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	return token, meta, nil
}
