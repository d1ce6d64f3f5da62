package cli

import "fmt"

// ExitError carries a specific process exit code up to main. Verification
// classifications and operator aborts map onto codes this way; any other
// error exits 3.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Msg
}

// exitFor converts a non-zero verification outcome into an ExitError, nil
// otherwise.
func exitFor(code int, msg string) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code, Msg: msg}
}
