// Package commands provides the verbs a playing character can type.
// Default builds the table in its fixed registration order; earlier entries
// win prefix matches, so the directions come first.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/crystal-mush/gomud/pkg/game"
	"github.com/crystal-mush/gomud/pkg/interp"
)

// Directions in registration order, keyed by their speedwalk letter.
var directions = []struct {
	letter byte
	name   string
}{
	{'n', "north"},
	{'e', "east"},
	{'s', "south"},
	{'w', "west"},
	{'u', "up"},
	{'d', "down"},
}

// Default returns the standard command table. reg is the live-character
// registry used by commands that look at other players.
func Default(reg *game.Registry) *interp.Table {
	t := interp.NewTable()
	for _, dir := range directions {
		t.MustRegister(dir.name, doMove)
	}
	t.MustRegister("look", lookCmd(reg))
	t.MustRegister("say", sayCmd(reg))
	t.MustRegister("sit", positionCmd(reg, game.PosSitting))
	t.MustRegister("rest", positionCmd(reg, game.PosResting))
	t.MustRegister("sleep", positionCmd(reg, game.PosSleeping))
	t.MustRegister("stand", positionCmd(reg, game.PosStanding))
	t.MustRegister("wake", wakeCmd(reg))
	t.MustRegister("score", doScore)
	t.MustRegister("who", whoCmd(reg))
	t.MustRegister("help", helpCmd(t))
	t.MustRegister("save", func(ch *game.Character, _ *interp.Input) { ch.Save() })
	t.MustRegister("quit", func(ch *game.Character, _ *interp.Input) { ch.Quit() })
	t.MustRegister(interp.SpeedwalkCmd, speedwalkCmd(t))
	return t
}

func doMove(ch *game.Character, _ *interp.Input) {
	if ch.Position() < game.PosFighting {
		ch.Write("You need to be standing to go anywhere.\r\n")
		return
	}
	ch.Write("Alas, you cannot go that way.\r\n")
}

// speedwalkCmd runs one direction command per letter of its argument,
// stopping at the first letter that is not a direction.
func speedwalkCmd(t *interp.Table) interp.HandlerFunc {
	return func(ch *game.Character, in *interp.Input) {
		path := strings.Join(in.Args, "")
		if path == "" {
			ch.Write("Speedwalk where?\r\n")
			return
		}
		for i := 0; i < len(path); i++ {
			name := directionName(path[i])
			if name == "" {
				ch.Write(fmt.Sprintf("Invalid speedwalk direction '%c'.\r\n", path[i]))
				return
			}
			fn, ok := t.Get(name)
			if !ok {
				return
			}
			fn(ch, interp.Parse(name))
			if ch.Detached() {
				return
			}
		}
	}
}

func directionName(letter byte) string {
	for _, dir := range directions {
		if dir.letter == letter {
			return dir.name
		}
	}
	return ""
}

func lookCmd(reg *game.Registry) interp.HandlerFunc {
	return func(ch *game.Character, _ *interp.Input) {
		if !ch.CanSee() {
			ch.Write("You can't see anything, you're sleeping!\r\n")
			return
		}
		var b strings.Builder
		b.WriteString("The Void\r\nYou are floating in a formless void.\r\n")
		for _, other := range reg.All() {
			if other == ch {
				continue
			}
			fmt.Fprintf(&b, "%s is here, %s.\r\n", other.Name(), other.Position())
		}
		ch.Write(b.String())
	}
}

func sayCmd(reg *game.Registry) interp.HandlerFunc {
	return func(ch *game.Character, in *interp.Input) {
		if in.Rest == "" {
			ch.Write("Say what?\r\n")
			return
		}
		text := strings.ReplaceAll(in.Rest, "$", "$$")
		game.Act(reg, "You say '"+text+"'", game.ActOptions{Ch: ch, Type: game.ToChar})
		game.Act(reg, "$n says '"+text+"'", game.ActOptions{Ch: ch, Type: game.ToRoom, MinPos: game.PosResting})
	}
}

var positionMessages = map[game.Position]struct {
	self, room, already string
}{
	game.PosSitting:  {"You sit down.", "$n sits down.", "You are already sitting down."},
	game.PosResting:  {"You rest.", "$n sits down and rests.", "You are already resting."},
	game.PosSleeping: {"You go to sleep.", "$n goes to sleep.", "You are already sound asleep."},
	game.PosStanding: {"You stand up.", "$n stands up.", "You are already standing."},
}

func positionCmd(reg *game.Registry, to game.Position) interp.HandlerFunc {
	msgs := positionMessages[to]
	return func(ch *game.Character, _ *interp.Input) {
		from := ch.Position()
		switch {
		case from == to:
			ch.Write(msgs.already + "\r\n")
			return
		case from == game.PosFighting && to != game.PosStanding:
			ch.Write("Maybe you should finish this fight first?\r\n")
			return
		case from == game.PosUnconscious:
			ch.Write("You can't do that while unconscious.\r\n")
			return
		case from == game.PosSleeping && to != game.PosStanding:
			ch.Write("You need to wake up first.\r\n")
			return
		}

		ch.SetPosition(to)
		self, room := msgs.self, msgs.room
		if from == game.PosSleeping {
			self, room = "You wake and stand up.", "$n wakes and stands up."
		}
		game.Act(reg, self, game.ActOptions{Ch: ch, Type: game.ToChar})
		game.Act(reg, room, game.ActOptions{Ch: ch, Type: game.ToRoom, MinPos: game.PosResting})
	}
}

func wakeCmd(reg *game.Registry) interp.HandlerFunc {
	stand := positionCmd(reg, game.PosStanding)
	return func(ch *game.Character, in *interp.Input) {
		if ch.Position() != game.PosSleeping {
			ch.Write("You are already awake.\r\n")
			return
		}
		stand(ch, in)
	}
}

func doScore(ch *game.Character, _ *interp.Input) {
	ch.Write(fmt.Sprintf("You are %s, a %s %s.\r\nYou are %s.\r\n",
		ch.Name(), ch.Race(), ch.Class(), ch.Position()))
}

func whoCmd(reg *game.Registry) interp.HandlerFunc {
	return func(ch *game.Character, _ *interp.Input) {
		var b strings.Builder
		b.WriteString("Players online:\r\n")
		all := reg.All()
		for _, other := range all {
			fmt.Fprintf(&b, "[%-8s %-9s] %s (idle %s)\r\n",
				other.Race(), other.Class(), other.Name(), FormatIdleTime(other.Idle()))
		}
		fmt.Fprintf(&b, "%d player(s) online.\r\n", len(all))
		ch.Write(b.String())
	}
}

func helpCmd(t *interp.Table) interp.HandlerFunc {
	return func(ch *game.Character, _ *interp.Input) {
		ch.Write("Available commands:\r\n  " + strings.Join(t.Names(), " ") +
			"\r\nCommands may be abbreviated; a string of n/e/s/w/u/d walks that path.\r\n")
	}
}

// FormatIdleTime formats a duration as a human-readable idle time.
func FormatIdleTime(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm", secs/60)
	}
	if secs < 86400 {
		return fmt.Sprintf("%dh", secs/3600)
	}
	return fmt.Sprintf("%dd", secs/86400)
}
