package auth

import "errors"

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidToken = errors.New("login token is invalid, expired or already used")
	ErrMailDelivery = errors.New("could not deliver login email")
)
