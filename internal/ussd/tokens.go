package ussd

import "strings"

// Separator joins keystroke fields in the cumulative text.
const Separator = "*"

// Tokens is the ordered field sequence of one dial event. It is never empty.
type Tokens []string

// Decode splits text on Separator. Decoding "" yields [""], the marker of a
// freshly opened session.
func Decode(text string) Tokens {
	return Tokens(strings.Split(text, Separator))
}

// At returns the i-th field, or "" when it is absent. An empty field and a
// missing one are treated alike by every flow.
func (t Tokens) At(i int) string {
	if i < 0 || i >= len(t) {
		return ""
	}
	return t[i]
}

// Empty reports whether the tokens encode an empty text.
func (t Tokens) Empty() bool {
	return len(t) == 1 && t[0] == ""
}

// From returns the tokens after dropping the first n fields, as if the
// remainder had been dialled as a fresh text.
func (t Tokens) From(n int) Tokens {
	if n >= len(t) {
		return Tokens{""}
	}
	return append(Tokens(nil), t[n:]...)
}

func (t Tokens) String() string {
	return strings.Join(t, Separator)
}
