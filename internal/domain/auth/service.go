package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"permadrop/internal/pkg/jwt"
)

type Service struct {
	repo    *Repository
	tokens  *jwt.Service
	mailer  Mailer
	baseURL string
	linkTTL time.Duration
	log     *zap.SugaredLogger
}

func NewService(repo *Repository, tokens *jwt.Service, mailer Mailer, baseURL string, linkTTL time.Duration, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		linkTTL: linkTTL,
		log:     log,
	}
}

// RequestLink emails a single-use sign-in link. The raw token never
// touches storage, only its sha256 does.
func (s *Service) RequestLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate login token: %w", err)
	}
	token := hex.EncodeToString(raw)

	record := &LoginToken{
		Email:     email,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.linkTTL),
	}
	if err := s.repo.CreateLoginToken(ctx, record); err != nil {
		return fmt.Errorf("store login token: %w", err)
	}

	link := s.baseURL + "/api/v1/auth/verify?token=" + token
	if err := s.mailer.SendLoginLink(email, link); err != nil {
		s.log.Errorw("login mail failed", "email", email, "error", err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	s.log.Infow("login link issued", "email", email)
	return nil
}

// VerifyToken consumes the emailed token and returns a signed session
// credential for the (possibly newly created) account.
func (s *Service) VerifyToken(ctx context.Context, token string) (string, *User, error) {
	if token == "" {
		return "", nil, ErrInvalidToken
	}

	email, err := s.repo.ConsumeLoginToken(ctx, hashToken(token), time.Now())
	if err != nil {
		return "", nil, err
	}

	user, err := s.repo.GetOrCreateUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("resolve account: %w", err)
	}

	signed, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, user, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
