package paidupload

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"permadrop/internal/blobstore"
	"permadrop/internal/domain/ledger"
	"permadrop/internal/payment"
)

// sizeVarianceBytes is the allowed absolute difference between the
// declared and the actual payload size.
const sizeVarianceBytes = 1024

// Limits bounds paid uploads and carries the checkout redirect URLs.
type Limits struct {
	FreeMaxBytes int64
	MaxFileBytes int64
	SuccessURL   string
	CancelURL    string
}

// Service coordinates the paid-upload workflow: quote and reserve a
// session, verify settlement, write the blob, record the file, and
// refund when anything after payment fails. All state lives in the
// ledger; concurrent calls on the same session are serialized solely by
// the store's compare-and-set status transitions.
type Service struct {
	ledger  ledgerStore
	gateway checkoutGateway
	blobs   blobUploader
	pricing Pricing
	limits  Limits
	log     *zap.SugaredLogger
}

func NewService(ledger ledgerStore, gateway checkoutGateway, blobs blobUploader, pricing Pricing, limits Limits, log *zap.SugaredLogger) *Service {
	return &Service{
		ledger:  ledger,
		gateway: gateway,
		blobs:   blobs,
		pricing: pricing,
		limits:  limits,
		log:     log,
	}
}

type SessionQuote struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	PriceCents  int64  `json:"price_cents"`
}

type PaymentConfirmation struct {
	SessionID string              `json:"session_id"`
	Status    ledger.UploadStatus `json:"status"`
	Paid      bool                `json:"paid"`
}

type UploadResult struct {
	File    *ledger.FileRecord    `json:"file"`
	Request *ledger.UploadRequest `json:"upload_request"`
}

type RefundResult struct {
	SessionID      string `json:"session_id"`
	RefundID       string `json:"refund_id,omitempty"`
	ManualFollowUp bool   `json:"manual_follow_up_required"`
}

// RefundedError reports that a post-payment failure was compensated:
// the upload request is failed and a refund was attempted. When
// ManualFollowUp is set no refund could be produced and an operator
// must intervene.
type RefundedError struct {
	RefundID       string
	ManualFollowUp bool
	cause          error
}

func (e *RefundedError) Error() string {
	if e.ManualFollowUp {
		return fmt.Sprintf("upload failed, refund could not be issued (manual follow-up required): %v", e.cause)
	}
	return fmt.Sprintf("upload failed, payment refunded (%s): %v", e.RefundID, e.cause)
}

func (e *RefundedError) Unwrap() error { return e.cause }

// CreateSession quotes a paid upload and reserves a pending ledger
// entry. Nothing is persisted if checkout-session creation fails.
func (s *Service) CreateSession(ctx context.Context, userID int64, fileName string, sizeBytes int64, mimeType string) (*SessionQuote, error) {
	if sizeBytes <= s.limits.FreeMaxBytes {
		return nil, fmt.Errorf("%w: payloads up to %d bytes use the free path", ErrInvalidSize, s.limits.FreeMaxBytes)
	}
	if sizeBytes > s.limits.MaxFileBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidSize, s.limits.MaxFileBytes)
	}

	priceCents, err := s.pricing.PriceCents(sizeBytes)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, userID, sizeBytes, priceCents, s.limits.SuccessURL, s.limits.CancelURL)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrUpstreamFailure, err)
	}

	req := &ledger.UploadRequest{
		UserID:            userID,
		ExpectedSizeBytes: sizeBytes,
		PaymentSessionID:  session.ID,
		PaymentIntentID:   session.PaymentIntentID,
		PriceCents:        priceCents,
		Status:            ledger.StatusPending,
	}
	if err := s.ledger.CreateUploadRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("persist upload request: %w", err)
	}

	s.log.Infow("paid upload session created",
		"session_id", session.ID, "user_id", userID, "size", sizeBytes, "price_cents", priceCents, "file", fileName, "mime", mimeType)

	return &SessionQuote{SessionID: session.ID, CheckoutURL: session.CheckoutURL, PriceCents: priceCents}, nil
}

// ConfirmPayment transitions pending -> paid once the gateway reports
// settlement. The gateway is authoritative; the stored status alone is
// never trusted. Safe to call repeatedly: once paid, calls are no-ops
// that report the current status.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string, callerUserID int64) (*PaymentConfirmation, error) {
	req, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if callerUserID != 0 && req.UserID != callerUserID {
		return nil, ErrUnauthorized
	}

	status, err := s.gateway.GetSessionStatus(ctx, req.PaymentSessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: checkout session expired on gateway", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: session status: %v", ErrUpstreamFailure, err)
	}

	if status.Paid() && req.Status == ledger.StatusPending {
		patch := map[string]any{}
		if req.PaymentIntentID == "" && status.PaymentIntentID != "" {
			patch["payment_intent_id"] = status.PaymentIntentID
		}
		_, cur, err := s.ledger.TransitionUploadStatus(ctx, req.ID, ledger.StatusPending, ledger.StatusPaid, patch)
		if err != nil {
			return nil, err
		}
		req = cur
	}

	return &PaymentConfirmation{SessionID: req.PaymentSessionID, Status: req.Status, Paid: status.Paid()}, nil
}

// ConfirmUpload writes the payload durably and completes the ledger
// entry. Preconditions are checked in order, each with a distinct
// rejection. Any failure after the payment settled triggers the
// compensation path exactly once.
func (s *Service) ConfirmUpload(ctx context.Context, userID int64, sessionID string, data []byte, fileName, mimeType string) (*UploadResult, error) {
	req, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrUnauthorized
	}
	if req.Status != ledger.StatusPaid {
		return nil, fmt.Errorf("%w: status is %s, want %s", ErrInvalidState, req.Status, ledger.StatusPaid)
	}
	if delta := int64(len(data)) - req.ExpectedSizeBytes; delta > sizeVarianceBytes || delta < -sizeVarianceBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrSizeMismatch, req.ExpectedSizeBytes, len(data))
	}

	obj, err := s.blobs.Upload(ctx, data, mimeType, fileName)
	if err != nil {
		return nil, s.compensate(ctx, req, s.upstream(err, "blob upload"))
	}

	file := &ledger.FileRecord{
		UserID:           &userID,
		BlobContentID:    obj.ContentID,
		CanonicalURL:     obj.CanonicalURL,
		SizeBytes:        int64(len(data)),
		MimeType:         mimeType,
		OriginalFileName: fileName,
	}
	if err := s.ledger.CreateFileRecord(ctx, file); err != nil {
		return nil, s.compensate(ctx, req, s.upstream(err, "create file record"))
	}

	changed, cur, err := s.ledger.TransitionUploadStatus(ctx, req.ID, ledger.StatusPaid, ledger.StatusUploaded,
		map[string]any{"blob_content_id": obj.ContentID})
	if err != nil {
		return nil, s.compensate(ctx, req, s.upstream(err, "mark uploaded"))
	}
	if !changed {
		// A concurrent call won the transition; this blob is orphaned
		// but the payment is accounted for exactly once.
		s.log.Warnw("lost uploaded transition race", "session_id", sessionID, "status", cur.Status, "orphan_content_id", obj.ContentID)
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, cur.Status)
	}

	if err := s.gateway.AttachMetadata(ctx, req.PaymentSessionID, map[string]string{
		"content_id": obj.ContentID,
		"file_id":    file.ID,
	}); err != nil {
		s.log.Warnw("payment metadata annotation failed", "session_id", sessionID, "err", err)
	}

	s.log.Infow("paid upload completed", "session_id", sessionID, "content_id", obj.ContentID, "size", len(data))
	return &UploadResult{File: file, Request: cur}, nil
}

// RefundExplicit cancels a settled but undelivered upload on the
// caller's request.
func (s *Service) RefundExplicit(ctx context.Context, userID int64, sessionID string) (*RefundResult, error) {
	req, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrUnauthorized
	}
	if req.Status == ledger.StatusUploaded || req.Status == ledger.StatusFailed {
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidState, req.Status)
	}

	status, err := s.gateway.GetSessionStatus(ctx, req.PaymentSessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session status: %v", ErrUpstreamFailure, err)
	}
	if !status.Paid() {
		return nil, fmt.Errorf("%w: payment has not settled", ErrInvalidState)
	}

	refundID, manual, err := s.refundAndFail(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RefundResult{SessionID: req.PaymentSessionID, RefundID: refundID, ManualFollowUp: manual}, nil
}

// GetSession returns the caller's upload request for a session id.
func (s *Service) GetSession(ctx context.Context, userID int64, sessionID string) (*ledger.UploadRequest, error) {
	req, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrUnauthorized
	}
	return req, nil
}

func (s *Service) lookup(ctx context.Context, sessionID string) (*ledger.UploadRequest, error) {
	req, err := s.ledger.GetUploadRequestBySessionID(ctx, sessionID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrNotFound
	}
	return req, err
}

func (s *Service) upstream(err error, op string) error {
	if errors.Is(err, blobstore.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %s: %v", ErrInsufficientBalance, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamFailure, op, err)
}

// compensate runs the single centralized refund path for a failure
// after payment settled and wraps the outcome in a RefundedError.
func (s *Service) compensate(ctx context.Context, req *ledger.UploadRequest, cause error) error {
	refundID, manual, err := s.refundAndFail(ctx, req)
	if err != nil {
		return err
	}
	return &RefundedError{RefundID: refundID, ManualFollowUp: manual, cause: cause}
}

// refundAndFail marks the request failed first, then refunds. The
// compare-and-set to failed is the at-most-once guard: whoever loses
// the transition must not refund again.
func (s *Service) refundAndFail(ctx context.Context, req *ledger.UploadRequest) (refundID string, manualFollowUp bool, err error) {
	changed, cur, err := s.ledger.TransitionUploadStatus(ctx, req.ID, req.Status, ledger.StatusFailed, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: mark failed: %v", ErrUpstreamFailure, err)
	}
	if !changed {
		return "", false, fmt.Errorf("%w: status moved to %s concurrently", ErrInvalidState, cur.Status)
	}

	refund := s.gateway.Refund(ctx, req.PaymentSessionID)
	if refund == nil {
		s.log.Errorw("refund could not be issued, manual follow-up required",
			"session_id", req.PaymentSessionID, "upload_request_id", req.ID)
		return "", true, nil
	}

	if _, _, err := s.ledger.TransitionUploadStatus(ctx, req.ID, ledger.StatusFailed, ledger.StatusFailed,
		map[string]any{"refund_id": refund.ID}); err != nil {
		s.log.Warnw("failed to record refund id", "session_id", req.PaymentSessionID, "refund_id", refund.ID, "err", err)
	}

	s.log.Infow("payment refunded", "session_id", req.PaymentSessionID, "refund_id", refund.ID)
	return refund.ID, false, nil
}
