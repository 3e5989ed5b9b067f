package interp

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/crystal-mush/gomud/pkg/game"
)

// SpeedwalkCmd is the command a bare run of direction letters is routed to.
const SpeedwalkCmd = "speedwalk"

var isSpeedwalk = regexp.MustCompile(`^[neswud]+$`)

// HandlerFunc implements one command.
type HandlerFunc func(ch *game.Character, in *Input)

// Table maps command names to handlers and remembers registration order,
// which decides prefix matches.
type Table struct {
	names    []string
	handlers map[string]HandlerFunc
}

// NewTable creates an empty command table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]HandlerFunc)}
}

// Register appends a command. Names must be unique and non-empty.
func (t *Table) Register(name string, fn HandlerFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("command %q: name and handler required", name)
	}
	if _, dup := t.handlers[name]; dup {
		return fmt.Errorf("command %q already registered", name)
	}
	t.names = append(t.names, name)
	t.handlers[name] = fn
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (t *Table) MustRegister(name string, fn HandlerFunc) {
	if err := t.Register(name, fn); err != nil {
		panic(err)
	}
}

// Get returns the handler registered under exactly name.
func (t *Table) Get(name string) (HandlerFunc, bool) {
	fn, ok := t.handlers[name]
	return fn, ok
}

// Lookup returns the first command, in registration order, whose name
// starts with prefix. Matching is case-sensitive.
func (t *Table) Lookup(prefix string) (string, HandlerFunc, bool) {
	if prefix == "" {
		return "", nil, false
	}
	for _, name := range t.names {
		if strings.HasPrefix(name, prefix) {
			return name, t.handlers[name], true
		}
	}
	return "", nil, false
}

// Names returns command names in registration order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of registered commands.
func (t *Table) Len() int {
	return len(t.names)
}

// Interpreter resolves input lines against a Table.
type Interpreter struct {
	table   *Table
	aliases map[string]string

	// OnDispatch, if set, is called with the resolved command name
	// before its handler runs.
	OnDispatch func(name string)
	// OnUnknown, if set, is called with tokens that match nothing.
	OnUnknown func(token string)
}

// New creates an interpreter over table. aliases maps an exact typed
// token to the command text it stands for and may be nil.
func New(table *Table, aliases map[string]string) *Interpreter {
	it := &Interpreter{table: table, aliases: make(map[string]string)}
	for k, v := range aliases {
		it.aliases[k] = v
	}
	return it
}

// Table returns the command table.
func (it *Interpreter) Table() *Table {
	return it.table
}

// Interpret runs line as ch.
func (it *Interpreter) Interpret(ch *game.Character, line string) {
	if isSpeedwalk.MatchString(line) {
		if fn, ok := it.table.Get(SpeedwalkCmd); ok {
			it.dispatched(SpeedwalkCmd)
			fn(ch, Parse(SpeedwalkCmd+" "+line))
			return
		}
	}

	in := Parse(line)
	if in.Cmd == "" {
		ch.Write("\r\n")
		return
	}

	if target, ok := it.aliases[in.Cmd]; ok {
		expanded := target
		if in.Rest != "" {
			expanded += " " + in.Rest
		}
		in = Parse(expanded)
		if in.Cmd == "" {
			ch.Write("\r\n")
			return
		}
	}

	name, fn, ok := it.table.Lookup(in.Cmd)
	if !ok {
		if it.OnUnknown != nil {
			it.OnUnknown(in.Cmd)
		}
		ch.Write(fmt.Sprintf("Unrecognized command %s.\r\n", in.Cmd))
		return
	}
	it.dispatched(name)
	fn(ch, in)
}

func (it *Interpreter) dispatched(name string) {
	if it.OnDispatch != nil {
		it.OnDispatch(name)
	}
}
