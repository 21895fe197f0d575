package compose

import (
	"net/netip"
	"strings"
)

// IsAddress accepts a single IP, a CIDR prefix or an inclusive range
// written "first-last" of the same family. Surrounding whitespace is not
// allowed.
func IsAddress(s string) bool {
	if first, last, ok := strings.Cut(s, "-"); ok {
		a, err1 := netip.ParseAddr(first)
		b, err2 := netip.ParseAddr(last)
		return err1 == nil && err2 == nil && a.Is4() == b.Is4() && a.Compare(b) <= 0
	}
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
