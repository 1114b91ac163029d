package rates

import "errors"

var (
	ErrUnauthorized    = errors.New("rates: unauthorized")
	ErrNotInstantiated = errors.New("rates: model not instantiated")
)
