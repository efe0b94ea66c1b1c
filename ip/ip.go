package ip

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

const maxHostnameLen = 253

// ValidateAddress accepts an IPv4 or IPv6 literal, optionally in brackets, or
// an RFC 1123 host name.
func ValidateAddress(addr string) error {
	if addr == "" {
		return errors.New("address is empty")
	}
	if strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]") {
		addr = addr[1 : len(addr)-1]
		if net.ParseIP(addr) == nil {
			return errors.Errorf("invalid IP address %q", addr)
		}
		return nil
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	if len(addr) > maxHostnameLen {
		return errors.Errorf("host name %q is longer than %d characters", addr, maxHostnameLen)
	}
	for _, label := range strings.Split(strings.TrimSuffix(addr, "."), ".") {
		if !validLabel(label) {
			return errors.Errorf("invalid host name %q", addr)
		}
	}
	return nil
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}
