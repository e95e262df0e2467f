package intakeform

import "errors"

var ErrUnknownService = errors.New("unknown intake form service")
