package files

import "errors"

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds the free-tier size limit")
	ErrNotOwner     = errors.New("you do not own a file with this url")
	ErrNoURLs       = errors.New("no urls supplied")
	ErrShareIDSpace = errors.New("could not allocate a unique share id")
)
