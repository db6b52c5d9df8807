package oauth1

import (
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"unreserved passes through", "AZaz09-._~", "AZaz09-._~"},
		{"space", "a b", "a%20b"},
		{"plus and comma", "Hello Ladies + Gentlemen, a signed OAuth request!", "Hello%20Ladies%20%2B%20Gentlemen%2C%20a%20signed%20OAuth%20request%21"},
		{"ampersand", "Dogs, Cats & Mice", "Dogs%2C%20Cats%20%26%20Mice"},
		{"reserved url chars", "https://apisb.etrade.com/v1/accounts/list", "https%3A%2F%2Fapisb.etrade.com%2Fv1%2Faccounts%2Flist"},
		{"utf-8 bytes", "☃", "%E2%98%83"},
		{"percent itself", "100%", "100%25"},
		{"uppercase hex", "\x0a\xff", "%0A%FF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.in); got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_OutputAlphabet(t *testing.T) {
	var all strings.Builder
	for i := 0; i < 256; i++ {
		all.WriteByte(byte(i))
	}

	out := Encode(all.String())
	for i := 0; i < len(out); i++ {
		c := out[i]
		if !unreserved(c) && c != '%' {
			t.Fatalf("Encode emitted byte %q outside [A-Za-z0-9%%.-_~]", c)
		}
	}
	if len(out) != 66+3*(256-66) {
		t.Errorf("len(Encode(all bytes)) = %d, want %d", len(out), 66+3*(256-66))
	}
}
