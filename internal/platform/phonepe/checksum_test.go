package phonepe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"merchantId":"M1","amount":999}`)
	a := Sign(payload, "/pg/v1/pay", "salt")
	b := Sign(payload, "/pg/v1/pay", "salt")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestSign_Avalanche(t *testing.T) {
	payload := []byte(`{"merchantId":"M1","amount":999}`)
	base := Sign(payload, "/pg/v1/pay", "salt")

	// flipping any single byte of the payload must change the digest
	for i := range payload {
		mutated := make([]byte, len(payload))
		copy(mutated, payload)
		mutated[i] ^= 0x01
		require.NotEqual(t, base, Sign(mutated, "/pg/v1/pay", "salt"), "byte %d", i)
	}

	require.NotEqual(t, base, Sign(payload, "/pg/v1/status", "salt"))
	require.NotEqual(t, base, Sign(payload, "/pg/v1/pay", "other-salt"))
}

func TestSign_NilPayloadSignsPathOnly(t *testing.T) {
	require.Equal(t, Sign(nil, "/pg/v1/status/M1/TXN_1", "salt"), Sign([]byte{}, "/pg/v1/status/M1/TXN_1", "salt"))
}

func TestHeader_Format(t *testing.T) {
	h := Header("abc123", "1")
	require.Equal(t, "abc123###1", h)
	require.True(t, strings.Contains(h, "###"))
}

func TestVerifyStatusHeader(t *testing.T) {
	const (
		merchantID = "M1"
		txnID      = "TXN_abc"
		salt       = "salt-key"
	)
	good := Header(Sign(nil, StatusPath(merchantID, txnID), salt), "1")

	require.NoError(t, VerifyStatusHeader(good, merchantID, txnID, salt))

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"no separator", "deadbeef"},
		{"empty digest", "###1"},
		{"wrong digest", Header(Sign(nil, StatusPath(merchantID, "TXN_other"), salt), "1")},
		{"wrong salt", Header(Sign(nil, StatusPath(merchantID, txnID), "bad-salt"), "1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, VerifyStatusHeader(tt.header, merchantID, txnID, salt), ErrBadSignature)
		})
	}
}
