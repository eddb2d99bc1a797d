package auth

import "time"

type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

// LoginToken is a single-use emailed credential. Only the sha256 of
// the token ever touches the database.
type LoginToken struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Email     string     `gorm:"column:email;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (LoginToken) TableName() string { return "login_tokens" }
