package binance

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignature_KnownVector tests the HMAC against the published Binance example
func TestSignature_KnownVector(t *testing.T) {
	signer := NewSigner("NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j")
	payload := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"

	assert.Equal(t, "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71", signer.Signature(payload))
}

// TestSignAt_Layout tests that timestamp is included and signature comes last
func TestSignAt_Layout(t *testing.T) {
	signer := NewSigner("secret")
	params := url.Values{}
	params.Set("symbol", "BTCUSDT")

	signed := signer.SignAt(params, time.UnixMilli(1700000000123))

	qs, sig, found := strings.Cut(signed, "&signature=")
	require.True(t, found)
	assert.Equal(t, "symbol=BTCUSDT&timestamp=1700000000123", qs)
	assert.Equal(t, signer.Signature(qs), sig)
	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(sig), sig)
}

// TestSign_SameMillisecondIsIdempotent tests identical output within one millisecond
func TestSign_SameMillisecondIsIdempotent(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	signer := NewSigner("secret", WithClock(func() time.Time { return fixed }))
	params := url.Values{"symbol": {"BTCUSDT"}, "orderId": {"42"}}

	assert.Equal(t, signer.Sign(params), signer.Sign(params))
}

// TestSign_DifferentTimestampsDiffer tests that a new millisecond yields a new signature
func TestSign_DifferentTimestampsDiffer(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	signer := NewSigner("secret", WithClock(func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}))
	params := url.Values{"symbol": {"BTCUSDT"}}

	first := signer.Sign(params)
	second := signer.Sign(params)

	_, sig1, _ := strings.Cut(first, "&signature=")
	_, sig2, _ := strings.Cut(second, "&signature=")
	assert.NotEqual(t, sig1, sig2)
}

// TestSign_DoesNotMutateParams tests copy-on-sign in both directions
func TestSign_DoesNotMutateParams(t *testing.T) {
	signer := NewSigner("secret", WithClock(func() time.Time { return time.UnixMilli(1) }))
	params := url.Values{"symbol": {"BTCUSDT"}}

	signed := signer.Sign(params)

	assert.Equal(t, url.Values{"symbol": {"BTCUSDT"}}, params, "caller params must not gain timestamp")

	params.Set("symbol", "ETHUSDT")
	params.Add("quantity", "1")
	assert.Equal(t, "symbol=BTCUSDT&timestamp=1&signature="+signer.Signature("symbol=BTCUSDT&timestamp=1"), signed)
}

// TestSign_StableOrder tests that insertion order does not change the output
func TestSign_StableOrder(t *testing.T) {
	signer := NewSigner("secret")
	ts := time.UnixMilli(1700000000000)

	a := url.Values{}
	a.Set("symbol", "BTCUSDT")
	a.Set("side", "BUY")
	a.Set("quantity", "0.001")

	b := url.Values{}
	b.Set("quantity", "0.001")
	b.Set("symbol", "BTCUSDT")
	b.Set("side", "BUY")

	assert.Equal(t, signer.SignAt(a, ts), signer.SignAt(b, ts))
}

// TestSign_RecvWindow tests the optional recvWindow parameter
func TestSign_RecvWindow(t *testing.T) {
	signer := NewSigner("secret", WithRecvWindow(5*time.Second))

	signed := signer.SignAt(url.Values{}, time.UnixMilli(10))

	assert.True(t, strings.HasPrefix(signed, "recvWindow=5000&timestamp=10&signature="))
}

// TestSign_DropsCallerSignature tests that a stray signature param is never signed over
func TestSign_DropsCallerSignature(t *testing.T) {
	signer := NewSigner("secret")

	signed := signer.SignAt(url.Values{"signature": {"forged"}}, time.UnixMilli(10))

	assert.Equal(t, 1, strings.Count(signed, "signature="))
	assert.NotContains(t, signed, "forged")
}
