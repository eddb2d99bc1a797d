package ledger

import "time"

// UploadStatus is the lifecycle of a paid-upload attempt.
// pending -> paid -> uploaded, with pending|paid -> failed as the only
// other transition. uploaded and failed are terminal.
type UploadStatus string

const (
	StatusPending  UploadStatus = "pending"
	StatusPaid     UploadStatus = "paid"
	StatusUploaded UploadStatus = "uploaded"
	StatusFailed   UploadStatus = "failed"
)

// UploadRequest is one paid-upload attempt. Never deleted.
type UploadRequest struct {
	ID                string       `gorm:"column:id;primaryKey" json:"id"`
	UserID            int64        `gorm:"column:user_id;index" json:"user_id"`
	ExpectedSizeBytes int64        `gorm:"column:expected_size_bytes" json:"expected_size_bytes"`
	PaymentSessionID  string       `gorm:"column:payment_session_id;index" json:"payment_session_id"`
	PaymentIntentID   string       `gorm:"column:payment_intent_id;index" json:"payment_intent_id,omitempty"`
	PriceCents        int64        `gorm:"column:price_cents" json:"price_cents"`
	Status            UploadStatus `gorm:"column:status" json:"status"`
	BlobContentID     string       `gorm:"column:blob_content_id" json:"blob_content_id,omitempty"`
	RefundID          string       `gorm:"column:refund_id" json:"refund_id,omitempty"`
	CreatedAt         time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (UploadRequest) TableName() string { return "upload_requests" }

// FileRecord is one successfully stored file, free or paid.
// UserID is nil for anonymous free uploads until claimed.
type FileRecord struct {
	ID               string    `gorm:"column:id;primaryKey" json:"id"`
	UserID           *int64    `gorm:"column:user_id;index" json:"user_id,omitempty"`
	BlobContentID    string    `gorm:"column:blob_content_id" json:"blob_content_id"`
	CanonicalURL     string    `gorm:"column:canonical_url;index" json:"url"`
	SizeBytes        int64     `gorm:"column:size_bytes" json:"size_bytes"`
	MimeType         string    `gorm:"column:mime_type" json:"mime_type"`
	OriginalFileName string    `gorm:"column:original_file_name" json:"original_file_name"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
}

func (FileRecord) TableName() string { return "file_records" }

// ShareLink maps a short public id to a canonical URL. Immutable.
type ShareLink struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	UserID       int64     `gorm:"column:user_id;index" json:"user_id"`
	CanonicalURL string    `gorm:"column:canonical_url" json:"url"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (ShareLink) TableName() string { return "share_links" }
