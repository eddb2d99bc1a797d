package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func Models() []any {
	return []any{&User{}, &LoginToken{}}
}

func (r *Repository) GetOrCreateUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = User{Email: email}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Concurrent first login for the same address.
		if isUniqueViolation(err) {
			var existing User
			if ferr := r.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateLoginToken(ctx context.Context, t *LoginToken) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// ConsumeLoginToken marks the token used and returns its email.
// Single use: the guarded update only lands once.
func (r *Repository) ConsumeLoginToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	res := r.db.WithContext(ctx).
		Model(&LoginToken{}).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		Update("used_at", now)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrInvalidToken
	}

	var t LoginToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		return "", err
	}
	return t.Email, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
