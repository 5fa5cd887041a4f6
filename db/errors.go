package db

import "errors"

// Sentinel errors returned by domain operations. Handlers map these to
// HTTP status codes with errors.Is.
var (
	// ErrNotFound is returned by every update/delete against an unknown
	// id, uniformly across all entity operations.
	ErrNotFound = errors.New("record not found")

	// ErrEmailAlreadyInUse is returned by Register when the email already
	// exists in the credentials collection. No partial credential/user
	// pair is created.
	ErrEmailAlreadyInUse = errors.New("email already in use")

	// ErrInvalidCredential is returned by Authenticate for both an
	// unknown email and a wrong password, so callers cannot tell which.
	ErrInvalidCredential = errors.New("invalid email or password")

	// ErrPaymentUserMissing and ErrPaymentPlanMissing are returned by
	// VerifyPayment when a lookup fails. The payment stays PENDING and
	// nothing is mutated.
	ErrPaymentUserMissing = errors.New("payment verification: user not found")
	ErrPaymentPlanMissing = errors.New("payment verification: subscription plan not found")

	// ErrSubscriptionRequired gates subscriber-only downloads.
	ErrSubscriptionRequired = errors.New("active subscription required")

	// ErrDownloadLimitReached is returned when a user's per-type download
	// counter is exhausted for the current subscription period.
	ErrDownloadLimitReached = errors.New("download limit reached")
)
