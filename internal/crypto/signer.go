// Package crypto provides request signing and API-secret management for the
// Coinbase Pro REST API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// Signer holds the credentials required for HMAC-authenticated requests
// against the exchange REST API.
type Signer struct {
	Key        string // API key
	Secret     string // API secret (base64-encoded)
	Passphrase string // API passphrase
}

// Headers returns the authentication headers for one request, signed with a
// fresh timestamp. Callers must not cache the result across requests: the
// exchange rejects stale timestamps server-side.
//
// Returned header keys:
//   - CB-ACCESS-KEY
//   - CB-ACCESS-SIGN
//   - CB-ACCESS-TIMESTAMP
//   - CB-ACCESS-PASSPHRASE
func (s *Signer) Headers(method, path, body string) (map[string]string, error) {
	return s.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (s *Signer) HeadersAt(method, path, body string, unixTS int64) (map[string]string, error) {
	ts := strconv.FormatInt(unixTS, 10)

	sig, err := s.sign(ts, method, path, body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"CB-ACCESS-KEY":        s.Key,
		"CB-ACCESS-SIGN":       sig,
		"CB-ACCESS-TIMESTAMP":  ts,
		"CB-ACCESS-PASSPHRASE": s.Passphrase,
	}, nil
}

// SignAt computes the CB-ACCESS-SIGN value for the given timestamp, without
// building the full header set.
func (s *Signer) SignAt(method, path, body string, unixTS int64) (string, error) {
	return s.sign(strconv.FormatInt(unixTS, 10), method, path, body)
}

// sign builds the canonical message timestamp+method+path+body (the body
// segment is omitted entirely when empty: signing no body and signing "{}"
// must produce different bytes), decodes the base64 secret, and computes a
// base64-encoded HMAC-SHA256 digest over the message.
func (s *Signer) sign(ts, method, path, body string) (string, error) {
	if method == "" || path == "" {
		return "", fmt.Errorf("crypto: method and path are required: %w", domain.ErrSigningFailed)
	}

	secretBytes, err := base64.StdEncoding.DecodeString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("crypto: decode api secret: %v: %w", err, domain.ErrSigningFailed)
	}

	message := ts + method + path + body

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// String returns a redacted representation suitable for logging.
func (s *Signer) String() string {
	redact := func(v string) string {
		if len(v) <= 4 {
			return "****"
		}
		return v[:4] + "****"
	}
	return fmt.Sprintf("Signer{key=%s, secret=%s}", redact(s.Key), redact(s.Secret))
}
