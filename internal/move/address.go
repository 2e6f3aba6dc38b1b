package move

import "strings"

// addressHexLen is the number of hex digits in a full-length Sui address.
const addressHexLen = 64

// PackageID identifies a deployed package. Values produced by ParsePackageID
// are canonical: "0x" followed by lowercase hex without leading zeros.
// The empty PackageID is unresolvable.
type PackageID string

// ParsePackageID canonicalises an address. "0x2", "0x0000...02" and
// "0000...02" all yield "0x2". Malformed input yields the empty PackageID.
func ParsePackageID(s string) PackageID {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")

	if s == "" || len(s) > addressHexLen {
		return ""
	}

	for _, r := range s {
		if !isHexDigit(r) {
			return ""
		}
	}

	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}

	return PackageID("0x" + s)
}

// IsZero reports whether the id is empty (unresolvable).
func (p PackageID) IsZero() bool {
	return p == ""
}

// String returns the canonical short form.
func (p PackageID) String() string {
	return string(p)
}

// Long returns the zero-padded 64 hex digit form used on the wire.
func (p PackageID) Long() string {
	if p.IsZero() {
		return ""
	}

	digits := strings.TrimPrefix(string(p), "0x")

	return "0x" + strings.Repeat("0", addressHexLen-len(digits)) + digits
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
