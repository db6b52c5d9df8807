package oauth1

const upperHex = "0123456789ABCDEF"

// Encode percent-encodes s per RFC 3986 section 2.3. Only the unreserved set
// (ALPHA, DIGIT, '-', '.', '_', '~') passes through; every other byte,
// including each byte of a multi-byte UTF-8 sequence, becomes %XX.
func Encode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperHex[c>>4], upperHex[c&0x0f])
	}
	return string(buf)
}

func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
