package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndVerify(t *testing.T) {
	svc := New("test-secret", time.Hour)

	token, err := svc.GenerateToken(42, "user@example.com")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := svc.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "user@example.com", id.Email)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := New("test-secret", -time.Minute)

	token, err := svc.GenerateToken(42, "user@example.com")
	assert.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Hour).GenerateToken(42, "user@example.com")
	assert.NoError(t, err)

	_, err = New("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := New("test-secret", time.Hour)
	_, err := svc.Verify("not.a.token")
	assert.Error(t, err)
}
