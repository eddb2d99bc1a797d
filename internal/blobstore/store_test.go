package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// gatewayStub is a scriptable fake of the storage-network gateway.
type gatewayStub struct {
	sponsoredStatus int
	balance         int64
	fee             int64
	txStatus        string

	sponsoredCalls int
	fundedCalls    int
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx/sponsored", func(w http.ResponseWriter, r *http.Request) {
		g.sponsoredCalls++
		if g.sponsoredStatus != 0 {
			w.WriteHeader(g.sponsoredStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "sponsored-tx"})
	})
	mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
		g.fundedCalls++
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "funded-tx"})
	})
	mux.HandleFunc("/price/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int64{"fee": g.fee})
	})
	mux.HandleFunc("/account/balance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int64{"balance": g.balance})
	})
	mux.HandleFunc("/tx/funded-tx/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": g.txStatus})
	})
	return mux
}

func newTestStore(t *testing.T, g *gatewayStub) *Store {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)
	return New(Config{
		GatewayURL:        srv.URL,
		PublicBaseURL:     "https://permastore.test",
		APIKey:            "key",
		SponsoredMaxBytes: 100 * 1024,
	}, zap.NewNop().Sugar())
}

func TestSmallPayloadUsesSponsoredPath(t *testing.T) {
	g := &gatewayStub{}
	store := newTestStore(t, g)

	obj, err := store.Upload(context.Background(), []byte("hello"), "text/plain", "hello.txt")
	assert.NoError(t, err)
	assert.Equal(t, "sponsored-tx", obj.ContentID)
	assert.Equal(t, "https://permastore.test/sponsored-tx", obj.CanonicalURL)
	assert.Equal(t, 1, g.sponsoredCalls)
	assert.Equal(t, 0, g.fundedCalls)
}

func TestSponsoredFailureFallsBackToFunded(t *testing.T) {
	g := &gatewayStub{sponsoredStatus: http.StatusServiceUnavailable, balance: 1000, fee: 10, txStatus: "accepted"}
	store := newTestStore(t, g)

	obj, err := store.Upload(context.Background(), []byte("hello"), "text/plain", "hello.txt")
	assert.NoError(t, err)
	assert.Equal(t, "funded-tx", obj.ContentID)
	assert.Equal(t, 1, g.sponsoredCalls)
	assert.Equal(t, 1, g.fundedCalls)
}

func TestLargePayloadSkipsSponsoredPath(t *testing.T) {
	g := &gatewayStub{balance: 1 << 30, fee: 500, txStatus: "accepted"}
	store := newTestStore(t, g)

	big := bytes.Repeat([]byte("x"), 200*1024)
	obj, err := store.Upload(context.Background(), big, "application/octet-stream", "big.bin")
	assert.NoError(t, err)
	assert.Equal(t, "funded-tx", obj.ContentID)
	assert.Equal(t, 0, g.sponsoredCalls)
}

func TestFundedPathInsufficientBalance(t *testing.T) {
	g := &gatewayStub{balance: 5, fee: 500}
	store := newTestStore(t, g)

	big := bytes.Repeat([]byte("x"), 200*1024)
	_, err := store.Upload(context.Background(), big, "application/octet-stream", "big.bin")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 0, g.fundedCalls, "must not submit when balance cannot cover the fee")
}

func TestFundedPathVerificationFailureIsHard(t *testing.T) {
	g := &gatewayStub{balance: 1 << 30, fee: 500, txStatus: "dropped"}
	store := newTestStore(t, g)

	big := bytes.Repeat([]byte("x"), 200*1024)
	_, err := store.Upload(context.Background(), big, "application/octet-stream", "big.bin")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 1, g.fundedCalls, "no silent retry after a signed submit")
}

func TestEmptyPayloadRejected(t *testing.T) {
	store := newTestStore(t, &gatewayStub{})
	_, err := store.Upload(context.Background(), nil, "text/plain", "empty.txt")
	assert.Error(t, err)
}

func TestCanonicalURLDerivation(t *testing.T) {
	store := newTestStore(t, &gatewayStub{})
	for _, id := range []string{"abc", "0xdeadbeef"} {
		obj := store.object(id)
		assert.Equal(t, fmt.Sprintf("https://permastore.test/%s", id), obj.CanonicalURL)
	}
}
