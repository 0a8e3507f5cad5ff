package relay

import "errors"

var (
	ErrEmptyIdentity  = errors.New("user identity cannot be empty")
	ErrIdentityChange = errors.New("connection already announced a different identity")
	ErrSessionClosed  = errors.New("session closed")
	ErrRelayClosed    = errors.New("relay closed")
)
