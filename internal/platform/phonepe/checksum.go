package phonepe

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrBadSignature is returned when an inbound X-VERIFY header does not match
// the recomputed digest. Callers must reject the notification outright.
var ErrBadSignature = errors.New("phonepe: signature mismatch")

// Sign computes the provider checksum: hex SHA-256 over the base64-encoded
// payload, the API endpoint path, and the salt key. A nil payload signs the
// path alone, which is the scheme for GET status queries.
func Sign(payload []byte, endpointPath, saltKey string) string {
	var b strings.Builder
	if len(payload) > 0 {
		b.WriteString(base64.StdEncoding.EncodeToString(payload))
	}
	b.WriteString(endpointPath)
	b.WriteString(saltKey)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Header formats a digest for the X-VERIFY transport header.
func Header(digest, saltIndex string) string {
	return digest + "###" + saltIndex
}

// StatusPath builds the status-query endpoint path for a merchant transaction.
func StatusPath(merchantID, merchantTransactionID string) string {
	return fmt.Sprintf("/pg/v1/status/%s/%s", merchantID, merchantTransactionID)
}

// VerifyStatusHeader checks an inbound X-VERIFY header against the digest of
// the status path for the given transaction. Comparison is constant-time.
func VerifyStatusHeader(header, merchantID, merchantTransactionID, saltKey string) error {
	digest, _, found := strings.Cut(header, "###")
	if !found || digest == "" {
		return ErrBadSignature
	}
	want := Sign(nil, StatusPath(merchantID, merchantTransactionID), saltKey)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(want)) != 1 {
		return ErrBadSignature
	}
	return nil
}
