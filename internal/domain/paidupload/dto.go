package paidupload

type CreateSessionRequest struct {
	FileName  string `json:"file_name" binding:"required"`
	SizeBytes int64  `json:"size_bytes" binding:"required"`
	MimeType  string `json:"mime_type"`
}

type ConfirmPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type RefundRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}
