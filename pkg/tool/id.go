package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateMerchantTransactionID returns a fresh merchant transaction id of the
// form TXN_<hex>. The id doubles as the idempotency key correlating the local
// transaction row with the provider's record, so it is generated before the
// provider is contacted.
func GenerateMerchantTransactionID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the UUID source rather than returning a zero id.
		return "TXN_" + uuid.Must(uuid.NewV7()).String()
	}
	return "TXN_" + hex.EncodeToString(buf)
}
