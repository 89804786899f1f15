package transaction

import "errors"

var (
	// ErrDuplicateTransaction reports a create with an already-used merchant
	// transaction id. Clients should poll status instead of retrying.
	ErrDuplicateTransaction = errors.New("transaction already exists")
	// ErrTransactionNotFound reports a lookup or status update referencing an
	// unknown merchant transaction id. On the reconciliation paths this is a
	// data-integrity signal: the provider knows a transaction we never created.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrStatusConflict reports a terminal status write racing against an
	// earlier, different terminal write. The stored status wins.
	ErrStatusConflict = errors.New("transaction status conflict")
)
