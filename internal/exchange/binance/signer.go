package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Signer builds signed query strings for private endpoints.
//
// The signature is HMAC-SHA256(secret, qs) in lowercase hex, where qs is the
// URL-encoded parameter set including timestamp. The exchange recomputes the
// HMAC over the bytes it receives, so the returned string must be sent as is.
type Signer struct {
	secret     []byte
	recvWindow time.Duration
	now        func() time.Time
}

// SignerOption customizes a Signer
type SignerOption func(*Signer)

// WithClock sets the time source for the timestamp parameter
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecvWindow adds recvWindow (in milliseconds) to every signed request.
// Zero or negative leaves it out and the exchange default applies.
func WithRecvWindow(window time.Duration) SignerOption {
	return func(s *Signer) { s.recvWindow = window }
}

// NewSigner creates a signer keyed with the API secret
func NewSigner(secret string, opts ...SignerOption) *Signer {
	s := &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign stamps params with the current time and returns the signed query string.
// params is not modified.
func (s *Signer) Sign(params url.Values) string {
	return s.SignAt(params, s.now())
}

// SignAt is Sign with an explicit timestamp
func (s *Signer) SignAt(params url.Values, ts time.Time) string {
	signed := make(url.Values, len(params)+2)
	for key, values := range params {
		signed[key] = append([]string(nil), values...)
	}
	signed.Del("signature")
	signed.Set("timestamp", strconv.FormatInt(ts.UnixMilli(), 10))
	if s.recvWindow > 0 {
		signed.Set("recvWindow", strconv.FormatInt(s.recvWindow.Milliseconds(), 10))
	}

	// Encode sorts by key
	qs := signed.Encode()
	return qs + "&signature=" + s.Signature(qs)
}

// Signature returns the lowercase hex HMAC-SHA256 of payload
func (s *Signer) Signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
