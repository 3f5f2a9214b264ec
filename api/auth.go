package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/dan13ram/bridge-ledger/app"
	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/models"
)

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"

	maxBodyBytes   = 1 << 20
	maxNonceLength = 64
)

var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpiredRequest   = errors.New("request timestamp outside allowed window")
	ErrReplayedRequest  = errors.New("request already served")
)

// NonceStore remembers the nonce of every accepted signed request until
// expiresAt, after which the timestamp check rejects it anyway. Remembering
// a nonce twice fails with app.ErrNonceUsed.
type NonceStore interface {
	Remember(ctx context.Context, caller models.Identity, nonce string, expiresAt time.Time) error
}

type callerKey struct{}

// SignedRequest is the verified signing material of a request.
type SignedRequest struct {
	Caller    models.Identity
	Nonce     string
	Timestamp time.Time
}

// SigningDigest is what a caller signs: keccak256(timestamp|nonce|method|path|body).
func SigningDigest(timestamp string, nonce string, method string, path string, body []byte) []byte {
	return crypto.Keccak256([]byte(timestamp+"|"+nonce+"|"+method+"|"+path+"|"), body)
}

// SignRequest sets the signature headers on req. The body, if any, must
// already be attached and is restored after reading.
func SignRequest(req *http.Request, signer common.Signer, now time.Time) error {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	timestamp := strconv.FormatInt(now.Unix(), 10)
	nonce := uuid.NewString()
	sig, err := signer.EthSign(SigningDigest(timestamp, nonce, req.Method, req.URL.Path, body))
	if err != nil {
		return err
	}

	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, hexutil.Encode(sig))
	return nil
}

// VerifyRequest checks the signature headers and returns who signed what.
func VerifyRequest(r *http.Request, body []byte, now time.Time, maxAge time.Duration) (SignedRequest, error) {
	timestamp := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	signature := r.Header.Get(HeaderSignature)
	if timestamp == "" || nonce == "" || signature == "" {
		return SignedRequest{}, ErrMissingSignature
	}
	if len(nonce) > maxNonceLength {
		return SignedRequest{}, fmt.Errorf("%w: nonce longer than %d", ErrInvalidSignature, maxNonceLength)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	signedAt := time.Unix(ts, 0)
	age := now.Sub(signedAt)
	if age > maxAge || age < -maxAge {
		return SignedRequest{}, ErrExpiredRequest
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return SignedRequest{}, fmt.Errorf("%w: bad encoding", ErrInvalidSignature)
	}
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(SigningDigest(timestamp, nonce, r.Method, r.URL.Path, body), sig)
	if err != nil {
		return SignedRequest{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return SignedRequest{
		Caller:    common.IdentityFromAddress(crypto.PubkeyToAddress(*pubKey)),
		Nonce:     nonce,
		Timestamp: signedAt,
	}, nil
}

// RecoverCaller returns the identity whose key signed the request.
func RecoverCaller(r *http.Request, body []byte, now time.Time, maxAge time.Duration) (models.Identity, error) {
	signed, err := VerifyRequest(r, body, now, maxAge)
	if err != nil {
		return models.Identity{}, err
	}
	return signed.Caller, nil
}

func withCaller(ctx context.Context, caller models.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) (models.Identity, bool) {
	caller, ok := ctx.Value(callerKey{}).(models.Identity)
	return caller, ok
}

// authenticate rejects unsigned or replayed requests and stores the caller
// identity.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.respondError(w, r, http.StatusRequestEntityTooLarge, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		signed, err := VerifyRequest(r, body, s.now(), s.maxRequestAge)
		if err != nil {
			s.respondError(w, r, http.StatusUnauthorized, err)
			return
		}

		err = s.nonces.Remember(r.Context(), signed.Caller, signed.Nonce, signed.Timestamp.Add(s.maxRequestAge))
		if errors.Is(err, app.ErrNonceUsed) {
			s.respondError(w, r, http.StatusConflict, fmt.Errorf("%w: nonce %s", ErrReplayedRequest, signed.Nonce))
			return
		}
		if err != nil {
			s.respondError(w, r, http.StatusServiceUnavailable, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), signed.Caller)))
	})
}
