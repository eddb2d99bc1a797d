package ledger

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateShareID = errors.New("share link id already taken")
)
