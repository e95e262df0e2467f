package cascade

import "errors"

var ErrStateNotFound = errors.New("journey state not found")
