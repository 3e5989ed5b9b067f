// Package telnet holds the small slice of the telnet protocol the game server
// speaks: echo control for password prompts, and decoding of the client byte
// stream into input lines with option negotiation stripped out.
package telnet

// Telnet protocol constants.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	SE   byte = 240 // Subnegotiation End

	TeloptEcho byte = 1
)

// EchoOff asks the client to stop echoing locally (server WILL ECHO).
// Sent before reading a password.
func EchoOff() []byte { return []byte{IAC, WILL, TeloptEcho} }

// EchoOn hands local echo back to the client (server WONT ECHO).
func EchoOn() []byte { return []byte{IAC, WONT, TeloptEcho} }

// Printable drops every byte outside printable ASCII (0x20-0x7E).
func Printable(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return filterPrintable(s)
		}
	}
	return s
}

func filterPrintable(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c <= 0x7E {
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// StripCommands removes IAC sequences from outbound text. Used by transports
// that cannot carry telnet options (WebSocket).
func StripCommands(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != IAC {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			break
		}
		switch b[i+1] {
		case IAC:
			out = append(out, IAC)
			i++
		case WILL, WONT, DO, DONT:
			i += 2
		default:
			i++
		}
	}
	return out
}
