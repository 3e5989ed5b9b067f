// Package game holds the in-play side of a connection: the Character bound
// to a session once onboarding completes, the registry of live characters,
// and the Act message helper.
package game

import "time"

// Session is the view a Character has of its connection. The connection
// owns the Character's lifetime, not the other way round.
type Session interface {
	ID() int
	Write(msg string)
	Prompt(text string)
	ReadFromBuffer() (string, bool)
	Data() map[string]string
	Idle() time.Duration
	Close()
	IsClosed() bool
}

// Data bag keys shared between onboarding and the Character.
const (
	KeyName         = "name"
	KeyPasswordHash = "passwordHash"
	KeyRace         = "race"
	KeyClass        = "class"
	KeySex          = "sex"
)

// Position is a character's physical stance, ordered from least to most
// active so that minimum-position checks are plain comparisons.
type Position int

const (
	PosUnconscious Position = iota
	PosSleeping
	PosResting
	PosSitting
	PosFighting
	PosStanding
)

var positionNames = [...]string{
	PosUnconscious: "unconscious",
	PosSleeping:    "sleeping",
	PosResting:     "resting",
	PosSitting:     "sitting",
	PosFighting:    "fighting",
	PosStanding:    "standing",
}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return "unknown"
	}
	return positionNames[p]
}

// Character is the in-play identity of a session.
type Character struct {
	session  Session
	reg      *Registry
	position Position
	prompt   string
	farewell string
}

// NewCharacter binds a Character to s and adds it to reg.
// prompt is redisplayed after every write; empty disables it.
func NewCharacter(s Session, reg *Registry, prompt string) *Character {
	ch := &Character{
		session:  s,
		reg:      reg,
		position: PosStanding,
		prompt:   prompt,
	}
	if reg != nil {
		reg.Add(ch)
	}
	return ch
}

// Session returns the bound session, or nil once detached.
func (ch *Character) Session() Session { return ch.session }

// Detached reports whether the session has gone away.
func (ch *Character) Detached() bool { return ch.session == nil }

func (ch *Character) data(key string) string {
	if ch.session == nil {
		return ""
	}
	return ch.session.Data()[key]
}

func (ch *Character) Name() string  { return ch.data(KeyName) }
func (ch *Character) Race() string  { return ch.data(KeyRace) }
func (ch *Character) Class() string { return ch.data(KeyClass) }
func (ch *Character) Sex() string   { return ch.data(KeySex) }

// Position returns the current stance. Characters start standing.
func (ch *Character) Position() Position { return ch.position }

// SetPosition changes the stance.
func (ch *Character) SetPosition(p Position) { ch.position = p }

// IsAwake is false while sleeping or unconscious.
func (ch *Character) IsAwake() bool {
	return ch.position != PosSleeping && ch.position != PosUnconscious
}

// CanSee is true whenever the character is awake.
func (ch *Character) CanSee() bool { return ch.IsAwake() }

// Idle returns how long since the session last sent a line.
func (ch *Character) Idle() time.Duration {
	if ch.session == nil {
		return 0
	}
	return ch.session.Idle()
}

// Write sends msg followed by the prompt. Writing to a detached
// character does nothing.
func (ch *Character) Write(msg string) {
	if ch.session == nil {
		return
	}
	ch.session.Write(msg)
	if ch.prompt != "" && ch.session != nil {
		ch.session.Prompt(ch.prompt)
	}
}

// HandleInput takes the oldest buffered line, if any, and hands it to
// dispatch. It returns false once the session is gone and the character
// should no longer be processed.
func (ch *Character) HandleInput(dispatch func(*Character, string)) bool {
	s := ch.session
	if s == nil || s.IsClosed() {
		return false
	}
	if line, ok := s.ReadFromBuffer(); ok {
		dispatch(ch, line)
	}
	return ch.session != nil && !s.IsClosed()
}

// Save acknowledges a save request.
func (ch *Character) Save() {
	ch.Write("Game now has automatic periodic saving!\r\n")
}

// DefaultFarewell is the goodbye Quit sends when none is set.
const DefaultFarewell = "\r\nThanks for playing! Come back again soon!\r\n"

// SetFarewell replaces the goodbye text sent by Quit.
func (ch *Character) SetFarewell(text string) { ch.farewell = text }

// Quit saves, says goodbye, and closes the session.
func (ch *Character) Quit() {
	ch.Save()
	if ch.farewell != "" {
		ch.Write(ch.farewell)
	} else {
		ch.Write(DefaultFarewell)
	}
	if s := ch.session; s != nil {
		s.Close()
	}
}

// Detach drops the character from its registry and forgets the session.
// The connection manager calls it before discarding a closed session.
func (ch *Character) Detach() {
	if ch.reg != nil {
		ch.reg.Remove(ch)
	}
	ch.session = nil
}
