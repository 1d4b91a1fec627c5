package tgproto

import "fmt"

// putFixedString writes s into a null-padded fixed-width field, matching
// the C layout's `char buf[N]` with strncpy-like truncation. It never
// writes more than width-1 bytes of s so the field always carries at
// least one trailing NUL (spec.md §9: validate null-termination on
// decode rather than relying on source-level strncpy semantics).
func putFixedString(dst []byte, s string, width int) error {
	if len(dst) != width {
		return fmt.Errorf("tgproto: fixed string field has wrong width %d, want %d", len(dst), width)
	}

	b := []byte(s)
	if len(b) > width-1 {
		b = b[:width-1]
	}

	copy(dst, b)

	for i := len(b); i < width; i++ {
		dst[i] = 0
	}

	return nil
}

// getFixedString reads a null-padded fixed-width field back into a Go
// string, requiring at least one NUL byte somewhere in the field -
// absence of a terminator means the field was never valid at encode
// time (a corrupt or hostile peer), so decode fails rather than reading
// past the intended content.
func getFixedString(src []byte) (string, error) {
	for i, b := range src {
		if b == 0 {
			return string(src[:i]), nil
		}
	}

	return "", fmt.Errorf("tgproto: fixed string field of width %d is missing its NUL terminator", len(src))
}
