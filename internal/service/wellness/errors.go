package wellness

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError reports a failed backend call: transport failure, non-2xx status
// or an undecodable body.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wellness %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("wellness %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
