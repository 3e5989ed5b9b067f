// Package interp parses input lines and dispatches them to commands.
package interp

import "strings"

// FirstArg splits line into its first argument and the rest. A line that
// starts with a single or double quote takes everything up to the matching
// quote as one argument; otherwise arguments end at a space. There is no
// escaping. ok is false for empty or whitespace-only input.
func FirstArg(line string) (arg, rest string, ok bool) {
	if strings.TrimSpace(line) == "" {
		return "", "", false
	}

	start := 0
	delim := byte(' ')
	if line[0] == '"' || line[0] == '\'' {
		start = 1
		delim = line[0]
	}

	end := strings.IndexByte(line[start:], delim)
	if end < 0 {
		return strings.TrimSpace(line[start:]), "", true
	}
	end += start
	return strings.TrimSpace(line[start:end]), strings.TrimSpace(line[end+1:]), true
}

// Input is one parsed line of player input.
type Input struct {
	Line      string   // the whole line, trimmed
	Cmd       string   // first argument
	Rest      string   // everything after Cmd
	Args      []string // arguments after Cmd, in order
	Remaining string   // what NextArg has not consumed yet
}

// Parse tokenizes line. Cmd is empty when the line is blank.
func Parse(line string) *Input {
	in := &Input{Line: strings.TrimSpace(line)}
	cmd, rest, ok := FirstArg(in.Line)
	if !ok {
		return in
	}
	in.Cmd = cmd
	in.Rest = rest
	in.Remaining = rest
	for {
		arg, r, ok := FirstArg(rest)
		if !ok {
			break
		}
		in.Args = append(in.Args, arg)
		rest = r
	}
	return in
}

// NextArg consumes and returns the next argument of Remaining.
func (in *Input) NextArg() (string, bool) {
	arg, rest, ok := FirstArg(in.Remaining)
	if !ok {
		return "", false
	}
	in.Remaining = rest
	return arg, true
}
