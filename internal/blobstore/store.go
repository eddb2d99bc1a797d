package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrInsufficientBalance means the backing account cannot cover the
// network fee for a self-funded upload. Distinct from transport errors
// so operators can be alerted specifically.
var ErrInsufficientBalance = errors.New("backing account balance below network fee")

// Store wraps the permanent-storage network gateway. Payloads up to
// SponsoredMaxBytes try the sponsored (pooled-credit) path first and
// fall back to the self-funded (wallet-backed) path; larger payloads go
// self-funded directly. Uploads are slow and never idempotent by
// content: a retried upload yields a new content id.
type Store struct {
	http          *http.Client
	gatewayURL    string
	publicBaseURL string
	apiKey        string
	sponsoredMax  int64
	log           *zap.SugaredLogger
}

type Config struct {
	GatewayURL        string
	PublicBaseURL     string
	APIKey            string
	SponsoredMaxBytes int64
}

func New(cfg Config, log *zap.SugaredLogger) *Store {
	return &Store{
		// Network writes settle in tens of seconds; callers apply their
		// own cancellation above this layer.
		http:          &http.Client{Timeout: 120 * time.Second},
		gatewayURL:    cfg.GatewayURL,
		publicBaseURL: cfg.PublicBaseURL,
		apiKey:        cfg.APIKey,
		sponsoredMax:  cfg.SponsoredMaxBytes,
		log:           log,
	}
}

// StoredObject identifies a durably written blob.
type StoredObject struct {
	ContentID    string
	CanonicalURL string
}

func (s *Store) Upload(ctx context.Context, data []byte, contentType, fileName string) (*StoredObject, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}

	if int64(len(data)) <= s.sponsoredMax {
		obj, err := s.sponsoredUpload(ctx, data, contentType, fileName)
		if err == nil {
			return obj, nil
		}
		s.log.Warnw("sponsored upload failed, falling back to self-funded path",
			"size", len(data), "err", err)
	}

	return s.fundedUpload(ctx, data, contentType, fileName)
}

type submitResponse struct {
	ID string `json:"id"`
}

func (s *Store) sponsoredUpload(ctx context.Context, data []byte, contentType, fileName string) (*StoredObject, error) {
	id, err := s.submit(ctx, "/tx/sponsored", data, contentType, fileName)
	if err != nil {
		return nil, err
	}
	return s.object(id), nil
}

// fundedUpload writes against the backing account: quote the network
// fee for this payload size, check the balance, submit, then verify
// the network accepted the signed payload. Verification failure after
// submit is a hard failure — resubmitting risks duplicate charges.
func (s *Store) fundedUpload(ctx context.Context, data []byte, contentType, fileName string) (*StoredObject, error) {
	fee, err := s.quoteFee(ctx, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fee quote failed: %w", err)
	}

	balance, err := s.accountBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("balance check failed: %w", err)
	}
	if balance < fee {
		s.log.Errorw("backing balance below network fee", "balance", balance, "fee", fee, "size", len(data))
		return nil, ErrInsufficientBalance
	}

	id, err := s.submit(ctx, "/tx", data, contentType, fileName)
	if err != nil {
		return nil, err
	}

	if err := s.verify(ctx, id); err != nil {
		return nil, fmt.Errorf("network did not confirm %s: %w", id, err)
	}
	return s.object(id), nil
}

func (s *Store) quoteFee(ctx context.Context, sizeBytes int64) (int64, error) {
	var out struct {
		Fee int64 `json:"fee"`
	}
	if err := s.getJSON(ctx, fmt.Sprintf("/price/%d", sizeBytes), &out); err != nil {
		return 0, err
	}
	return out.Fee, nil
}

func (s *Store) accountBalance(ctx context.Context) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := s.getJSON(ctx, "/account/balance", &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (s *Store) submit(ctx context.Context, path string, data []byte, contentType, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("X-File-Name", fileName)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("gateway returned empty content id")
	}
	return out.ID, nil
}

func (s *Store) verify(ctx context.Context, id string) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := s.getJSON(ctx, "/tx/"+id+"/status", &out); err != nil {
		return err
	}
	if out.Status != "accepted" && out.Status != "confirmed" {
		return fmt.Errorf("status %q", out.Status)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Store) object(id string) *StoredObject {
	return &StoredObject{
		ContentID:    id,
		CanonicalURL: s.publicBaseURL + "/" + id,
	}
}
