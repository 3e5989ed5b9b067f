package server

import (
	"math/rand/v2"
	"time"

	"github.com/crystal-mush/gomud/pkg/interp"
)

// TickMessage is broadcast to every character on each world tick.
const TickMessage = "\r\n*TICK*\r\n"

// Scheduler holds the two periodic jobs: draining one line per in-play
// session, and the randomly spaced world tick. The server's event loop
// owns the timers and calls in here.
type Scheduler struct {
	Conns   *ConnManager
	Interp  *interp.Interpreter
	Metrics *Metrics

	minTick, maxTick int
	randN            func(n int) int // [0, n)
}

// NewScheduler builds a scheduler over cm using the world tick range in gc.
func NewScheduler(cm *ConnManager, it *interp.Interpreter, gc *GameConf) *Scheduler {
	return &Scheduler{
		Conns:   cm,
		Interp:  it,
		Metrics: cm.Metrics,
		minTick: gc.WorldTickMin,
		maxTick: gc.WorldTickMax,
		randN:   rand.IntN,
	}
}

// ProcessTick gives every in-play descriptor one queued line. Descriptors
// whose session has ended leave the in-play set.
func (s *Scheduler) ProcessTick() {
	for _, d := range s.Conns.InPlay() {
		if d.Char == nil || !d.Char.HandleInput(s.Interp.Interpret) {
			s.Conns.removeInPlay(d)
		}
	}
	s.Conns.updateGauges()
}

// WorldTick tells every live character the world has moved on.
func (s *Scheduler) WorldTick() {
	for _, ch := range s.Conns.Chars.All() {
		ch.Write(TickMessage)
	}
	s.Metrics.worldTick()
}

// NextWorldTick draws the delay until the next world tick, a whole number
// of seconds between the configured bounds inclusive.
func (s *Scheduler) NextWorldTick() time.Duration {
	secs := s.minTick
	if span := s.maxTick - s.minTick; span > 0 {
		secs += s.randN(span + 1)
	}
	return time.Duration(secs) * time.Second
}
