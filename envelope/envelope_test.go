package envelope_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/social-publisher/envelope"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

type testPayload struct {
	Nonce  string            `json:"nonce"`
	Count  int               `json:"count"`
	Labels map[string]string `json:"labels,omitempty"`
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newCodec(t *testing.T, clock *fakeClock) *envelope.Codec {
	t.Helper()
	c, err := envelope.New(testSecret, envelope.WithNowTime(clock.Now))
	require.NoError(t, err)
	return c
}

func TestNew_RejectsShortSecret(t *testing.T) {
	_, err := envelope.New(strings.Repeat("x", envelope.MinSecretLength-1))
	require.ErrorIs(t, err, envelope.ErrSecretTooShort)

	_, err = envelope.New(strings.Repeat("x", envelope.MinSecretLength))
	require.NoError(t, err)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clock)

	payloads := []testPayload{
		{Nonce: "5c1f0d9e-4a57-4a71-9b7e-0b7a1c0f2d11"},
		{Nonce: "", Count: 42, Labels: map[string]string{"a": "b"}},
		{Nonce: "ünïcødé ✓", Count: -1},
	}
	for _, p := range payloads {
		token, err := c.Seal(p, 10*time.Minute)
		require.NoError(t, err)

		var got testPayload
		require.True(t, c.Open(token, &got))
		require.Equal(t, p, got)
	}
}

func TestSeal_NeverIdentical(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clock)

	a, err := c.Seal(testPayload{Nonce: "same"}, time.Hour)
	require.NoError(t, err)
	b, err := c.Seal(testPayload{Nonce: "same"}, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSeal_RejectsNonPositiveTTL(t *testing.T) {
	c := newCodec(t, &fakeClock{now: time.Now()})
	_, err := c.Seal(testPayload{}, 0)
	require.ErrorIs(t, err, envelope.ErrInvalidTTL)
}

func TestOpen_Expiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issued}
	c := newCodec(t, clock)

	token, err := c.Seal(testPayload{Nonce: "n"}, 10*time.Minute)
	require.NoError(t, err)

	clock.now = issued.Add(10*time.Minute - time.Second)
	var got testPayload
	require.True(t, c.Open(token, &got))

	clock.now = issued.Add(10 * time.Minute)
	require.False(t, c.Open(token, &got))

	clock.now = issued.Add(24 * time.Hour)
	require.False(t, c.Open(token, &got))
}

func TestOpen_SubSecondSeal(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 100*int(time.Millisecond), time.UTC)
	clock := &fakeClock{now: issued}
	c := newCodec(t, clock)

	short, err := c.Seal(testPayload{Nonce: "short"}, 500*time.Millisecond)
	require.NoError(t, err)
	var got testPayload
	require.True(t, c.Open(short, &got))
	require.Equal(t, "short", got.Nonce)

	clock.now = time.Date(2026, 3, 1, 12, 0, 0, 900*int(time.Millisecond), time.UTC)
	long, err := c.Seal(testPayload{Nonce: "long"}, 1500*time.Millisecond)
	require.NoError(t, err)

	clock.now = clock.now.Add(1200 * time.Millisecond)
	require.True(t, c.Open(long, &got))
	require.Equal(t, "long", got.Nonce)

	clock.now = time.Date(2026, 3, 1, 12, 0, 3, 0, time.UTC)
	require.False(t, c.Open(long, &got))
}

func TestOpen_TamperRejection(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clock)

	token, err := c.Seal(testPayload{Nonce: "tamper-me", Count: 7}, time.Hour)
	require.NoError(t, err)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for i := 0; i < len(token); i++ {
		for _, replacement := range []byte{token[i] ^ 0x01, alphabet[(strings.IndexByte(alphabet, token[i])+1)%len(alphabet)]} {
			if replacement == token[i] {
				continue
			}
			tampered := []byte(token)
			tampered[i] = replacement

			var got testPayload
			require.NotPanics(t, func() {
				require.False(t, c.Open(string(tampered), &got), "byte %d replaced with %q", i, replacement)
			})
		}
	}
}

func TestOpen_Malformed(t *testing.T) {
	c := newCodec(t, &fakeClock{now: time.Now()})

	for _, token := range []string{"", "not-a-token", "a.b.c.d.e", "....", strings.Repeat("A", 400)} {
		var got testPayload
		require.False(t, c.Open(token, &got))
	}
}

func TestOpen_WrongKey(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newCodec(t, clock)
	other, err := envelope.New("another-secret-that-is-long-enough-xx", envelope.WithNowTime(clock.Now))
	require.NoError(t, err)

	token, err := c.Seal(testPayload{Nonce: "n"}, time.Hour)
	require.NoError(t, err)

	var got testPayload
	require.False(t, other.Open(token, &got))
}

func TestOpen_PayloadShapeMismatch(t *testing.T) {
	c := newCodec(t, &fakeClock{now: time.Now()})

	token, err := c.Seal("just a string", time.Hour)
	require.NoError(t, err)

	var got testPayload
	require.False(t, c.Open(token, &got))

	var s string
	require.True(t, c.Open(token, &s))
	require.Equal(t, "just a string", s)
}
