package chain

import (
	"errors"
	"fmt"
)

// badStatusError marks an HTTP response that is a permanent rejection of the
// request rather than a transport hiccup — retrying it against the same or
// a different provider would fail identically. Mirrors a malformed or
// double-spent transaction being rejected by every node on the network.
type badStatusError struct {
	provider   string
	statusCode int
	body       string
}

func (e *badStatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.provider, e.statusCode, e.body)
}

func isBadStatus(err error) bool {
	var bse *badStatusError
	return errors.As(err, &bse)
}

// statusCodeOf extracts the HTTP status from err if it is a badStatusError,
// or 0 otherwise.
func statusCodeOf(err error) int {
	var bse *badStatusError
	if errors.As(err, &bse) {
		return bse.statusCode
	}
	return 0
}
