package ussd

// Mode is the session disposition of a response.
type Mode uint8

const (
	Continue Mode = iota + 1
	Terminate
)

func (m Mode) String() string {
	switch m {
	case Continue:
		return "CON"
	case Terminate:
		return "END"
	default:
		return "invalid"
	}
}

// Response is the only output of a dial event.
type Response struct {
	Mode Mode
	Text string
}

func Con(text string) Response { return Response{Mode: Continue, Text: text} }

func End(text string) Response { return Response{Mode: Terminate, Text: text} }

// String renders the wire form: "CON <text>" or "END <text>".
func (r Response) String() string {
	if r.Mode != Continue {
		return "END " + r.Text
	}
	return "CON " + r.Text
}
