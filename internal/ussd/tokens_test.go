package ussd

import (
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		text string
		want Tokens
	}{
		{"", Tokens{""}},
		{"1", Tokens{"1"}},
		{"1*1", Tokens{"1", "1"}},
		{"3*1*2348012345678*10*1111", Tokens{"3", "1", "2348012345678", "10", "1111"}},
		{"1**2", Tokens{"1", "", "2"}},
		{"*", Tokens{"", ""}},
	}
	for _, tc := range cases {
		if got := Decode(tc.text); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Decode(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestTokensAtAndFrom(t *testing.T) {
	tok := Decode("1234*1234*3*1")
	if tok.At(2) != "3" || tok.At(9) != "" || tok.At(-1) != "" {
		t.Fatalf("unexpected At results for %q", tok)
	}
	rest := tok.From(2)
	if rest.String() != "3*1" {
		t.Fatalf("From(2) = %q", rest)
	}
	rest[0] = "x"
	if tok[2] != "3" {
		t.Fatal("From must not alias the receiver")
	}
	if !tok.From(4).Empty() {
		t.Fatal("From past the end must be the empty text")
	}
}

func TestDecodeTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		tok := Decode(text)
		if len(tok) == 0 {
			t.Fatalf("Decode(%q) returned no fields", text)
		}
		if tok.String() != text {
			t.Fatalf("Decode(%q) does not rejoin: %q", text, tok.String())
		}
		if len(tok) != strings.Count(text, Separator)+1 {
			t.Fatalf("Decode(%q) has %d fields", text, len(tok))
		}
	})
}
