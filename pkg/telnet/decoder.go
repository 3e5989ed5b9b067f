package telnet

type decodeState int

const (
	stData decodeState = iota
	stIAC              // saw IAC
	stOption           // saw IAC WILL/WONT/DO/DONT, option byte next
	stSub              // inside IAC SB ... IAC SE
	stSubIAC           // saw IAC inside a subnegotiation
)

// Decoder turns a raw client byte stream into input lines. Lines end at LF;
// a CR before the LF is dropped. Telnet command and subnegotiation sequences
// are removed, backspace/DEL erase the previous byte, and other control bytes
// except tab are discarded. State carries across Feed calls, so a sequence
// split between two reads decodes correctly.
type Decoder struct {
	state decodeState
	line  []byte
}

// Feed consumes p and returns every line completed by it.
func (dec *Decoder) Feed(p []byte) []string {
	var lines []string
	for _, c := range p {
		switch dec.state {
		case stIAC:
			switch c {
			case IAC:
				// escaped 0xFF data byte; not printable, drop it
				dec.state = stData
			case WILL, WONT, DO, DONT:
				dec.state = stOption
			case SB:
				dec.state = stSub
			default:
				dec.state = stData
			}
			continue
		case stOption:
			dec.state = stData
			continue
		case stSub:
			if c == IAC {
				dec.state = stSubIAC
			}
			continue
		case stSubIAC:
			if c == SE {
				dec.state = stData
			} else {
				dec.state = stSub
			}
			continue
		}

		switch {
		case c == IAC:
			dec.state = stIAC
		case c == '\n':
			lines = append(lines, string(dec.line))
			dec.line = dec.line[:0]
		case c == '\b' || c == 0x7F:
			if n := len(dec.line); n > 0 {
				dec.line = dec.line[:n-1]
			}
		case c == '\t' || c >= 0x20:
			dec.line = append(dec.line, c)
		}
	}
	return lines
}

// Partial returns the text typed so far on the current, unterminated line.
func (dec *Decoder) Partial() string {
	return string(dec.line)
}

// Pending returns the length of the unterminated line.
func (dec *Decoder) Pending() int {
	return len(dec.line)
}

// Reset discards any partial line and protocol state.
func (dec *Decoder) Reset() {
	dec.state = stData
	dec.line = dec.line[:0]
}
