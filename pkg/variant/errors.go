package variant

import "errors"

// Sentinel errors. Returned errors wrap one of these; test with errors.Is.
var (
	ErrNoAlternative   = errors.New("value matches no alternative")
	ErrAmbiguous       = errors.New("value matches more than one alternative")
	ErrUndeclared      = errors.New("sum type not declared")
	ErrAlreadyDeclared = errors.New("sum type already declared")
	ErrNoAlternatives  = errors.New("sum type needs at least one alternative")
	ErrNoCase          = errors.New("visitor has no case for active alternative")
	ErrCopy            = errors.New("deep copy failed")
	ErrIndex           = errors.New("alternative index out of range")
)
