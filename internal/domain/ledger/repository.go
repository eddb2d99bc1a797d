package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the persistence layer for upload requests, file records
// and share links. Query shaping only; no business logic.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Models returns everything this repository persists, for AutoMigrate.
func Models() []any {
	return []any{&UploadRequest{}, &FileRecord{}, &ShareLink{}}
}

func (r *Repository) CreateUploadRequest(ctx context.Context, req *UploadRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repository) GetUploadRequestByID(ctx context.Context, id string) (*UploadRequest, error) {
	var req UploadRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &req, err
}

// GetUploadRequestBySessionID matches the checkout session id against
// both identifier columns: callers use the session id and the payment
// intent id interchangeably.
func (r *Repository) GetUploadRequestBySessionID(ctx context.Context, sessionID string) (*UploadRequest, error) {
	var req UploadRequest
	err := r.db.WithContext(ctx).
		Where("payment_session_id = ? OR payment_intent_id = ?", sessionID, sessionID).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &req, err
}

// TransitionUploadStatus applies from -> to atomically: the update only
// lands if the stored status still equals from. Returns whether the
// transition applied and the current row either way. ErrNotFound if the
// row vanished mid-flight.
func (r *Repository) TransitionUploadStatus(ctx context.Context, id string, from, to UploadStatus, patch map[string]any) (bool, *UploadRequest, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range patch {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&UploadRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, nil, res.Error
	}

	cur, err := r.GetUploadRequestByID(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, cur, nil
}

func (r *Repository) CreateFileRecord(ctx context.Context, f *FileRecord) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(f).Error
}

// ListFilesByUser returns the owner's files, newest first.
func (r *Repository) ListFilesByUser(ctx context.Context, userID int64, limit, offset int) ([]*FileRecord, error) {
	var files []*FileRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&files).Error
	return files, err
}

// UserOwnsFile reports whether the user has a file record with the
// given canonical URL.
func (r *Repository) UserOwnsFile(ctx context.Context, userID int64, canonicalURL string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&FileRecord{}).
		Where("user_id = ? AND canonical_url = ?", userID, canonicalURL).
		Count(&n).Error
	return n > 0, err
}

// LinkFilesToUser attaches anonymous file records to a user. Only rows
// with a NULL owner are touched, so re-running with already-claimed
// URLs is a no-op. Returns the number of newly linked records.
func (r *Repository) LinkFilesToUser(ctx context.Context, userID int64, canonicalURLs []string) (int64, error) {
	if len(canonicalURLs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&FileRecord{}).
		Where("canonical_url IN ? AND user_id IS NULL", canonicalURLs).
		Update("user_id", userID)
	return res.RowsAffected, res.Error
}

// CreateShareLink inserts a link; a colliding short id surfaces as
// ErrDuplicateShareID so the caller can regenerate and retry.
func (r *Repository) CreateShareLink(ctx context.Context, link *ShareLink) error {
	err := r.db.WithContext(ctx).Create(link).Error
	if isUniqueViolation(err) {
		return ErrDuplicateShareID
	}
	return err
}

func (r *Repository) GetShareLink(ctx context.Context, id string) (*ShareLink, error) {
	var link ShareLink
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &link, err
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
