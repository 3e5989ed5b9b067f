package game

import "strings"

// ActType selects who receives an Act message.
type ActType int

const (
	ToChar    ActType = iota // the subject only
	ToVict                   // the victim only
	ToRoom                   // everyone but the subject
	ToNotVict                // everyone but the subject and the victim
)

// ActOptions carries the participants of an Act message.
type ActOptions struct {
	Ch     *Character // subject, $n
	Type   ActType
	MinPos Position   // recipients below this position see nothing
	Vch    *Character // victim, $N
	Obj1   string     // $p
	Obj2   string     // $P
}

// Act renders format for each recipient chosen by opts.Type and writes it.
// Without a world model "room" means every live character in reg.
//
//	$n subject name   $N victim name
//	$p first object   $P second object
func Act(reg *Registry, format string, opts ActOptions) {
	msg := render(format, opts)
	deliver := func(to *Character) {
		if to == nil || to.Detached() || to.Position() < opts.MinPos {
			return
		}
		to.Write(msg)
	}

	switch opts.Type {
	case ToChar:
		deliver(opts.Ch)
	case ToVict:
		deliver(opts.Vch)
	case ToRoom, ToNotVict:
		if reg == nil {
			return
		}
		for _, to := range reg.All() {
			if to == opts.Ch || (opts.Type == ToNotVict && to == opts.Vch) {
				continue
			}
			deliver(to)
		}
	}
}

func render(format string, opts ActOptions) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '$' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'n':
			b.WriteString(nameOf(opts.Ch))
		case 'N':
			b.WriteString(nameOf(opts.Vch))
		case 'p':
			b.WriteString(opts.Obj1)
		case 'P':
			b.WriteString(opts.Obj2)
		case '$':
			b.WriteByte('$')
		default:
			b.WriteByte('$')
			b.WriteByte(format[i])
		}
	}
	b.WriteString("\r\n")
	return b.String()
}

func nameOf(ch *Character) string {
	if ch == nil {
		return "someone"
	}
	return ch.Name()
}
