package checkout

import "errors"

var (
	errCheckoutOpen     = errors.New("a checkout attempt is already in progress for this order")
	errAlreadyConfirmed = errors.New("session already confirmed")
	errUnknownOutcome   = errors.New("unknown checkout outcome")
)
