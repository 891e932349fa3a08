package validate

import "github.com/pkg/errors"

// Error kinds from §7. Each is a distinct sentinel so callers (and the
// CLI exit-code mapping in cmd) can distinguish them with errors.Is,
// the same way blockchain.NoBlockFoundError is a distinguishable sentinel
// in the teacher codebase.
var (
	ErrUnauthorizedResponder = errors.New("validate: responder is not an addressee of this query")
	ErrMalformedResponse     = errors.New("validate: malformed response")
	ErrSemanticInvalid       = errors.New("validate: response fails the supermajority (im)possibility check")
)
