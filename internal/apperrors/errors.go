package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates a debit larger than the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrLimitExceeded indicates the per-transaction or daily withdrawal cap would be exceeded.
var ErrLimitExceeded = errors.New("withdrawal limit exceeded")

// ErrUnfulfillable indicates no combination of available bills sums exactly to the requested amount.
var ErrUnfulfillable = errors.New("amount cannot be dispensed with available denominations")

// ErrMechanicalFailure indicates the dispenser hardware failed after exhausting retries.
var ErrMechanicalFailure = errors.New("dispenser mechanical failure")

// ErrGatewayDeclined indicates the authorizing bank declined the transaction.
var ErrGatewayDeclined = errors.New("authorization declined")

// ErrGatewayTimeout indicates the authorizing bank did not answer within the deadline.
// Treated like a decline for rollback purposes but logged distinctly.
var ErrGatewayTimeout = errors.New("authorization timed out")

// ErrInvalidPIN indicates a PIN that did not match the account.
var ErrInvalidPIN = errors.New("invalid PIN")

// ErrCardRetained indicates the card was retained after too many failed PIN attempts.
var ErrCardRetained = errors.New("card retained")

// ErrSessionExpired indicates the session idled past its deadline and the card was ejected.
var ErrSessionExpired = errors.New("session expired")

// ErrInvalidState indicates an operation that is not legal in the session's current state.
var ErrInvalidState = errors.New("operation not allowed in current session state")

// ErrCurrencyRejected indicates the deposit slot could not validate the inserted currency.
var ErrCurrencyRejected = errors.New("deposited currency could not be validated")

// ErrConsistency indicates an internal invariant violation (e.g. attempted
// double dispense). Fatal for the session; diagnostic state must be kept for
// operator review.
var ErrConsistency = errors.New("consistency violation")
