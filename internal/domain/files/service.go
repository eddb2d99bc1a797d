package files

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"permadrop/internal/blobstore"
	"permadrop/internal/domain/ledger"
)

const (
	shareIDLength   = 8
	shareIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	shareIDRetries  = 5
	shareCacheTTL   = time.Hour
)

type fileStore interface {
	CreateFileRecord(ctx context.Context, f *ledger.FileRecord) error
	ListFilesByUser(ctx context.Context, userID int64, limit, offset int) ([]*ledger.FileRecord, error)
	LinkFilesToUser(ctx context.Context, userID int64, canonicalURLs []string) (int64, error)
	UserOwnsFile(ctx context.Context, userID int64, canonicalURL string) (bool, error)
	CreateShareLink(ctx context.Context, link *ledger.ShareLink) error
	GetShareLink(ctx context.Context, id string) (*ledger.ShareLink, error)
}

type blobUploader interface {
	Upload(ctx context.Context, data []byte, contentType, fileName string) (*blobstore.StoredObject, error)
}

// Service covers the unpaid surface: free-tier uploads, file listings,
// claiming anonymous uploads and share links. Paid uploads never pass
// through here.
type Service struct {
	store        fileStore
	blobs        blobUploader
	rdb          *redis.Client // nil disables the redirect cache
	freeMaxBytes int64
	log          *zap.SugaredLogger
}

func NewService(store fileStore, blobs blobUploader, rdb *redis.Client, freeMaxBytes int64, log *zap.SugaredLogger) *Service {
	return &Service{store: store, blobs: blobs, rdb: rdb, freeMaxBytes: freeMaxBytes, log: log}
}

// UploadFree stores a payload within the free tier. userID is nil for
// anonymous uploads; the record can be claimed later.
func (s *Service) UploadFree(ctx context.Context, userID *int64, data []byte, fileName, mimeType string) (*ledger.FileRecord, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.freeMaxBytes {
		return nil, ErrFileTooLarge
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	obj, err := s.blobs.Upload(ctx, data, mimeType, fileName)
	if err != nil {
		return nil, err
	}

	record := &ledger.FileRecord{
		UserID:           userID,
		BlobContentID:    obj.ContentID,
		CanonicalURL:     obj.CanonicalURL,
		SizeBytes:        int64(len(data)),
		MimeType:         mimeType,
		OriginalFileName: fileName,
	}
	if err := s.store.CreateFileRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListFiles(ctx context.Context, userID int64, limit, offset int) ([]*ledger.FileRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListFilesByUser(ctx, userID, limit, offset)
}

// ClaimFiles attaches anonymous uploads to the caller. Already-claimed
// records are skipped; the return value counts only newly linked ones.
func (s *Service) ClaimFiles(ctx context.Context, userID int64, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, ErrNoURLs
	}
	return s.store.LinkFilesToUser(ctx, userID, urls)
}

// CreateShareLink allocates a short public id for a file the caller
// owns. Uniqueness is enforced by regenerating against the store.
func (s *Service) CreateShareLink(ctx context.Context, userID int64, canonicalURL string) (*ledger.ShareLink, error) {
	owns, err := s.store.UserOwnsFile(ctx, userID, canonicalURL)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrNotOwner
	}

	for i := 0; i < shareIDRetries; i++ {
		id, err := randomShareID()
		if err != nil {
			return nil, err
		}
		link := &ledger.ShareLink{ID: id, UserID: userID, CanonicalURL: canonicalURL}
		err = s.store.CreateShareLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ledger.ErrDuplicateShareID) {
			return nil, err
		}
	}
	return nil, ErrShareIDSpace
}

// Resolve maps a short id to its canonical URL, read-through cached.
func (s *Service) Resolve(ctx context.Context, shortID string) (string, error) {
	cacheKey := "share:" + shortID
	if s.rdb != nil {
		if url, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil && url != "" {
			return url, nil
		}
	}

	link, err := s.store.GetShareLink(ctx, shortID)
	if err != nil {
		return "", err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cacheKey, link.CanonicalURL, shareCacheTTL).Err(); err != nil {
			s.log.Debugw("share cache write failed", "id", shortID, "err", err)
		}
	}
	return link.CanonicalURL, nil
}

func randomShareID() (string, error) {
	out := make([]byte, shareIDLength)
	max := big.NewInt(int64(len(shareIDAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = shareIDAlphabet[n.Int64()]
	}
	return string(out), nil
}
