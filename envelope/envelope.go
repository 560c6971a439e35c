// Package envelope seals small JSON payloads into authenticated, encrypted,
// self-expiring tokens and opens them again.
//
// Tokens are compact JWE serializations using direct key agreement ("dir")
// and AES-256-GCM content encryption. The payload travels as a private claim
// next to the registered "iat" and "exp" claims.
package envelope

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest secret accepted by New.
	MinSecretLength = 32

	keyLength = 32 // AES-256
	keyInfo   = "social-publisher/envelope/v1"

	compactSegments = 5
)

var (
	ErrSecretTooShort = fmt.Errorf("token encryption secret must be at least %d characters", MinSecretLength)
	ErrInvalidTTL     = errors.New("envelope ttl must be positive")
)

var (
	keyAlgorithms     = []jose.KeyAlgorithm{jose.DIRECT}
	contentEncryption = []jose.ContentEncryption{jose.A256GCM}
)

type payloadClaims struct {
	Payload json.RawMessage `json:"pld"`
}

// Codec seals and opens envelopes under a single derived key. A Codec is
// immutable after construction and safe for concurrent use.
type Codec struct {
	key     []byte
	nowTime func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithNowTime sets the clock used for issued-at and expiry checks (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// New derives the encryption key from secret and returns a ready Codec.
// It fails when the secret is shorter than MinSecretLength.
func New(secret string, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("[envelope New] %w", err)
	}

	c := &Codec{
		key:     key,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func deriveKey(secret string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Seal serializes payload to JSON and encrypts it into a token that expires
// ttl from now. Two seals of the same payload never produce the same token.
func (c *Codec) Seal(payload any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.key},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create encrypter: %w", err)
	}

	now := c.nowTime()
	registered := jwt.Claims{
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expiryFor(now, ttl)),
	}

	token, err := jwt.Encrypted(encrypter).
		Claims(registered).
		Claims(payloadClaims{Payload: raw}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize envelope: %w", err)
	}
	return token, nil
}

// expiryFor rounds now+ttl up to a whole second, the precision of the exp
// claim, so a token never expires before its ttl has elapsed.
func expiryFor(now time.Time, ttl time.Duration) time.Time {
	expiry := now.Add(ttl)
	if whole := expiry.Truncate(time.Second); whole.Before(expiry) {
		return whole.Add(time.Second)
	}
	return expiry
}

// Open decrypts token into out. It reports false, without detail, when the
// token is malformed, fails authentication, has expired, or its payload does
// not decode into out. Callers must treat false as "re-authenticate".
func (c *Codec) Open(token string, out any) bool {
	if !isCanonical(token) {
		return false
	}

	parsed, err := jwt.ParseEncrypted(token, keyAlgorithms, contentEncryption)
	if err != nil {
		return false
	}

	var registered jwt.Claims
	var body payloadClaims
	if err := parsed.Claims(c.key, &registered, &body); err != nil {
		return false
	}

	if registered.Expiry == nil || !c.nowTime().Before(registered.Expiry.Time()) {
		return false
	}
	if len(body.Payload) == 0 {
		return false
	}

	return json.Unmarshal(body.Payload, out) == nil
}

// isCanonical rejects tokens whose segments are not strict base64url. Lenient
// decoding ignores trailing bits, which would let some single-character edits
// decode to the original bytes.
func isCanonical(token string) bool {
	segments := strings.Split(token, ".")
	if len(segments) != compactSegments {
		return false
	}
	for _, segment := range segments {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(segment); err != nil {
			return false
		}
	}
	return true
}
