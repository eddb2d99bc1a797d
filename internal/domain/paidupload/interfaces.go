package paidupload

import (
	"context"

	"permadrop/internal/blobstore"
	"permadrop/internal/domain/ledger"
	"permadrop/internal/payment"
)

type ledgerStore interface {
	CreateUploadRequest(ctx context.Context, req *ledger.UploadRequest) error
	GetUploadRequestBySessionID(ctx context.Context, sessionID string) (*ledger.UploadRequest, error)
	TransitionUploadStatus(ctx context.Context, id string, from, to ledger.UploadStatus, patch map[string]any) (bool, *ledger.UploadRequest, error)
	CreateFileRecord(ctx context.Context, f *ledger.FileRecord) error
}

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, userID int64, sizeBytes, priceCents int64, successURL, cancelURL string) (*payment.CheckoutSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*payment.SessionStatus, error)
	Refund(ctx context.Context, sessionID string) *payment.Refund
	AttachMetadata(ctx context.Context, sessionID string, md map[string]string) error
}

type blobUploader interface {
	Upload(ctx context.Context, data []byte, contentType, fileName string) (*blobstore.StoredObject, error)
}
