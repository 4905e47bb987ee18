package checkin

import "errors"

// Business-rule failures returned by the token codec and coordinator.
// These are final for the request: the scanning surface must not retry
// them. Store/infrastructure failures are returned wrapped (not as one of
// these sentinels) so callers can tell the two classes apart with errors.Is.
var (
	// ErrInvalidToken means the token is structurally malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the signature is valid but the token is past
	// its expiry. Remedy is an administrative re-issue.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenKind means a validly signed token of a different kind
	// was presented. Callers treat it like ErrInvalidToken.
	ErrWrongTokenKind = errors.New("wrong token kind")
	// ErrRegistrationNotFound means the verified token references a
	// registration that no longer exists.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrRegistrationNotApproved means the registration is pending or
	// rejected and may not check in.
	ErrRegistrationNotApproved = errors.New("registration not approved")
	// ErrCheckpointNotRecognized means the checkpoint name is not part of
	// the owning event's checkpoint set.
	ErrCheckpointNotRecognized = errors.New("checkpoint not recognized")
)
