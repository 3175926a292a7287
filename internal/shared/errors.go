package shared

import "errors"

// Error kinds shared by every ledger package. Package level sentinels wrap
// one of these so callers can match either the specific failure or its kind.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds indicates a debit larger than the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientEntitlement indicates a withdrawal above what a partner may draw.
	ErrInsufficientEntitlement = errors.New("insufficient entitlement")
	// ErrConflict indicates a duplicate submission or unique key clash.
	ErrConflict = errors.New("conflict")
	// ErrPersistence indicates the store was unreachable or rejected a write.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the principal lacks a permission.
	ErrForbidden = errors.New("forbidden")
)

// Kind returns the shared kind an error belongs to, or nil when it carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrInsufficientFunds,
		ErrInsufficientEntitlement,
		ErrNotFound,
		ErrConflict,
		ErrPersistence,
		ErrInvalidCredentials,
		ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
