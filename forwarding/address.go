package forwarding

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidAddress is returned when a hardware address is not well formed.
var ErrInvalidAddress = errors.New("invalid address")

var addressPattern = regexp.MustCompile(
	`^[0-9a-fA-F]{2}(:[0-9a-fA-F]{2}){5}$`)

// ValidateAddress checks that addr is six colon-separated hex pairs, as in
// "0a:1b:2c:3d:4e:5f".
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	return nil
}
