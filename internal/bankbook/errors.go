// Package bankbook implements the fund-movement core of the fuel-station
// back office: atomic transfers between bank accounts, single-sided
// deposit/withdrawal postings, reconciliation annotations, and the guard
// rules that keep account balances consistent with their transaction
// history.
package bankbook

import "errors"

// Domain errors. The HTTP layer maps these to status codes; everything else
// bubbling out of the store is treated as a persistence failure (500).
var (
	// ErrInvalidAmount rejects amounts <= 0. 400.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrSameAccount rejects transfers where source and destination match. 400.
	ErrSameAccount = errors.New("source and destination accounts are the same")

	// ErrSourceNotFound means the transfer's source account id did not resolve. 404.
	ErrSourceNotFound = errors.New("source account not found")

	// ErrDestinationNotFound means the destination account id did not resolve. 404.
	ErrDestinationNotFound = errors.New("destination account not found")

	// ErrAccountNotFound is the general missing-account error for
	// single-account operations. 404.
	ErrAccountNotFound = errors.New("bank account not found")

	// ErrTransactionNotFound means a transaction id did not resolve. 404.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotAuthorized means the caller does not own an involved account. 401.
	ErrNotAuthorized = errors.New("user not authorized for this account")

	// ErrInsufficientFunds means the source balance is below the requested
	// amount. 400.
	ErrInsufficientFunds = errors.New("insufficient funds in source account")

	// ErrInvalidTransactionID rejects a caller-supplied transaction id that
	// is not a UUID. 400.
	ErrInvalidTransactionID = errors.New("transaction id must be a valid UUID")

	// ErrDuplicateTransactionID means the transaction id already exists in
	// the store. 400.
	ErrDuplicateTransactionID = errors.New("transaction id already exists")

	// ErrConcurrentModification means the atomic unit lost a conflict with a
	// concurrent writer and had no effect; the caller may retry. 409.
	ErrConcurrentModification = errors.New("account was modified concurrently, retry the operation")

	// ErrHasTransactions blocks deletion of an account that transactions
	// still reference. Deactivate the account instead. 400.
	ErrHasTransactions = errors.New("cannot delete account with existing transactions, deactivate it instead")
)
