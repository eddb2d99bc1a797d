package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Registers the CGO-free "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"permadrop/internal/pkg/jwt"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendLoginLink(to, link string) error {
	args := m.Called(to, link)
	return args.Error(0)
}

func setupTestService(t *testing.T, linkTTL time.Duration) (*Service, *Repository, *MockMailer) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))

	repo := NewRepository(db)
	mailer := new(MockMailer)
	tokens := jwt.New("test-secret", time.Hour)
	svc := NewService(repo, tokens, mailer, "https://permadrop.test", linkTTL, zap.NewNop().Sugar())
	return svc, repo, mailer
}

// captureToken pulls the raw token out of the emailed link.
func captureToken(t *testing.T, mailer *MockMailer) string {
	t.Helper()
	require.NotEmpty(t, mailer.Calls)
	link := mailer.Calls[len(mailer.Calls)-1].Arguments.String(1)
	idx := strings.LastIndex(link, "token=")
	require.NotEqual(t, -1, idx)
	return link[idx+len("token="):]
}

func TestRequestLinkSendsMail(t *testing.T) {
	svc, _, mailer := setupTestService(t, 15*time.Minute)
	mailer.On("SendLoginLink", "user@example.com", mock.Anything).Return(nil)

	err := svc.RequestLink(context.Background(), "User@Example.com ")
	require.NoError(t, err)

	mailer.AssertExpectations(t)
	link := mailer.Calls[0].Arguments.String(1)
	assert.True(t, strings.HasPrefix(link, "https://permadrop.test/api/v1/auth/verify?token="))
}

func TestRequestLinkRejectsBadEmail(t *testing.T) {
	svc, _, mailer := setupTestService(t, 15*time.Minute)

	err := svc.RequestLink(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	mailer.AssertNotCalled(t, "SendLoginLink", mock.Anything, mock.Anything)
}

func TestVerifyTokenCreatesAccountAndSigns(t *testing.T) {
	svc, _, mailer := setupTestService(t, 15*time.Minute)
	mailer.On("SendLoginLink", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.RequestLink(context.Background(), "new@example.com"))
	token := captureToken(t, mailer)

	signed, user, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NotZero(t, user.ID)
}

func TestVerifyTokenIsSingleUse(t *testing.T) {
	svc, _, mailer := setupTestService(t, 15*time.Minute)
	mailer.On("SendLoginLink", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.RequestLink(context.Background(), "once@example.com"))
	token := captureToken(t, mailer)

	_, _, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)

	_, _, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc, _, mailer := setupTestService(t, -time.Minute)
	mailer.On("SendLoginLink", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.RequestLink(context.Background(), "late@example.com"))
	token := captureToken(t, mailer)

	_, _, err := svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := setupTestService(t, 15*time.Minute)

	_, _, err := svc.VerifyToken(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = svc.VerifyToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRepeatLoginReusesAccount(t *testing.T) {
	svc, _, mailer := setupTestService(t, 15*time.Minute)
	mailer.On("SendLoginLink", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.RequestLink(context.Background(), "same@example.com"))
	_, first, err := svc.VerifyToken(context.Background(), captureToken(t, mailer))
	require.NoError(t, err)

	require.NoError(t, svc.RequestLink(context.Background(), "same@example.com"))
	_, second, err := svc.VerifyToken(context.Background(), captureToken(t, mailer))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}
