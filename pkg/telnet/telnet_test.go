package telnet

import (
	"bytes"
	"reflect"
	"testing"
)

func TestEchoDirectives(t *testing.T) {
	if got := EchoOff(); !bytes.Equal(got, []byte{0xFF, 0xFB, 0x01}) {
		t.Errorf("EchoOff() = % X", got)
	}
	if got := EchoOn(); !bytes.Equal(got, []byte{0xFF, 0xFC, 0x01}) {
		t.Errorf("EchoOn() = % X", got)
	}
}

func TestDecoderLines(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
		rest   string
	}{
		{"lf", []string{"look\n"}, []string{"look"}, ""},
		{"crlf", []string{"look\r\nsay hi\r\n"}, []string{"look", "say hi"}, ""},
		{"split across reads", []string{"lo", "ok\r", "\nsa"}, []string{"look"}, "sa"},
		{"empty line", []string{"\r\n"}, []string{""}, ""},
		{"backspace", []string{"lookx\b\n"}, []string{"look"}, ""},
		{"delete", []string{"ab\x7f\x7f\x7fc\n"}, []string{"c"}, ""},
		{"control bytes dropped", []string{"a\x01b\x1bc\n"}, []string{"abc"}, ""},
		{"tab kept", []string{"a\tb\n"}, []string{"a\tb"}, ""},
		{"partial only", []string{"secr"}, nil, "secr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dec Decoder
			var got []string
			for _, c := range tt.chunks {
				got = append(got, dec.Feed([]byte(c))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
			if dec.Partial() != tt.rest {
				t.Errorf("Partial() = %q, want %q", dec.Partial(), tt.rest)
			}
		})
	}
}

func TestDecoderStripsNegotiation(t *testing.T) {
	var dec Decoder
	// client acks our WILL ECHO, then types a password
	in := []byte{IAC, DO, TeloptEcho}
	in = append(in, []byte("secret1\r\n")...)
	got := dec.Feed(in)
	if len(got) != 1 || got[0] != "secret1" {
		t.Fatalf("lines = %q, want [secret1]", got)
	}

	// sequence split between reads
	if lines := dec.Feed([]byte{'a', IAC}); len(lines) != 0 {
		t.Fatalf("unexpected lines %q", lines)
	}
	if lines := dec.Feed([]byte{WONT}); len(lines) != 0 {
		t.Fatalf("unexpected lines %q", lines)
	}
	got = dec.Feed([]byte{TeloptEcho, 'b', '\n'})
	if len(got) != 1 || got[0] != "ab" {
		t.Fatalf("lines = %q, want [ab]", got)
	}
}

func TestDecoderStripsSubnegotiation(t *testing.T) {
	var dec Decoder
	in := []byte{'x', IAC, SB, 24, 0, 'v', 't', '1', '0', '0', IAC, SE, 'y', '\n'}
	got := dec.Feed(in)
	if len(got) != 1 || got[0] != "xy" {
		t.Fatalf("lines = %q, want [xy]", got)
	}
}

func TestDecoderReset(t *testing.T) {
	var dec Decoder
	dec.Feed([]byte{'a', 'b', IAC})
	dec.Reset()
	if dec.Pending() != 0 {
		t.Errorf("Pending() = %d after Reset", dec.Pending())
	}
	got := dec.Feed([]byte("c\n"))
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("lines = %q, want [c]", got)
	}
}

func TestPrintable(t *testing.T) {
	tests := []struct{ in, want string }{
		{"secret1", "secret1"},
		{"sec\x00ret\x7f", "secret"},
		{"\xff\xfb\x01abc", "abc"},
		{"caf\xc3\xa9", "caf"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Printable(tt.in); got != tt.want {
			t.Errorf("Printable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripCommands(t *testing.T) {
	in := append([]byte("password:"), EchoOff()...)
	in = append(in, ' ')
	if got := string(StripCommands(in)); got != "password: " {
		t.Errorf("StripCommands = %q", got)
	}
	if got := StripCommands([]byte{'a', IAC, IAC, 'b'}); !bytes.Equal(got, []byte{'a', IAC, 'b'}) {
		t.Errorf("escaped IAC = % X", got)
	}
}
