package server

import (
	"log"
	"net"
	"slices"

	"github.com/crystal-mush/gomud/pkg/game"
)

// DefaultGreeting is sent to new connections when no connect.txt exists.
const DefaultGreeting = "\r\nWelcome to the MUD!\r\n"

// idPool hands out connection numbers, reusing the smallest freed one.
type idPool struct {
	top  int
	free []int // ascending
}

func (p *idPool) Next() int {
	if len(p.free) > 0 {
		id := p.free[0]
		p.free = p.free[1:]
		return id
	}
	p.top++
	return p.top
}

func (p *idPool) Free(id int) {
	i, found := slices.BinarySearch(p.free, id)
	if found {
		return
	}
	p.free = slices.Insert(p.free, i, id)
}

// ConnManager tracks all live connections and decides, on each state
// change, whether a descriptor is onboarding or in play. It is owned by the
// server's event loop and takes no locks.
type ConnManager struct {
	Conf    *GameConf
	Chars   *game.Registry
	Texts   *TextFiles
	Metrics *Metrics

	descriptors map[int]*Descriptor
	inPlay      []*Descriptor // insertion order
	ids         idPool
}

// NewConnManager creates a connection manager. chars is the live-character
// registry new characters join.
func NewConnManager(gc *GameConf, chars *game.Registry) *ConnManager {
	return &ConnManager{
		Conf:        gc,
		Chars:       chars,
		descriptors: make(map[int]*Descriptor),
	}
}

// Accept registers conn as a new descriptor, greets it and starts
// onboarding.
func (cm *ConnManager) Accept(conn net.Conn, transport TransportType) *Descriptor {
	d := NewDescriptor(cm.ids.Next(), conn, cm.Conf)
	d.Transport = transport
	d.metrics = cm.Metrics
	d.onState = cm.stateChanged
	d.onClose = cm.closed
	cm.descriptors[d.id] = d
	cm.Metrics.accepted(transport)
	cm.updateGauges()

	log.Printf("[%d] New %s connection from %s", d.id, transport, d.Addr)

	greeting := DefaultGreeting
	if cm.Texts != nil {
		if txt := cm.Texts.GetConnect(); txt != "" {
			greeting = txt
		}
	}
	d.Write(greeting)
	d.SetState(StateGetName)
	return d
}

// stateChanged routes a descriptor between onboarding and play.
func (cm *ConnManager) stateChanged(d *Descriptor, old, new ConnState) {
	if cm.Conf.Debug {
		log.Printf("[%d] State %s -> %s", d.id, old, new)
	}
	switch new {
	case StatePlaying:
		cm.addInPlay(d)
	case StateClosing:
		cm.removeInPlay(d)
	default:
		cm.removeInPlay(d)
		if !d.closed {
			cm.nanny(d)
		}
	}
	cm.updateGauges()
}

// closed releases everything a closed descriptor held. The character is
// detached before the descriptor record goes away.
func (cm *ConnManager) closed(d *Descriptor) {
	if d.Char != nil {
		d.Char.Detach()
	}
	cm.removeInPlay(d)
	if cm.descriptors[d.id] == d {
		delete(cm.descriptors, d.id)
		cm.ids.Free(d.id)
	}
	cm.updateGauges()
	log.Printf("[%d] Connection closed from %s", d.id, d.Addr)
}

func (cm *ConnManager) addInPlay(d *Descriptor) {
	if !slices.Contains(cm.inPlay, d) {
		cm.inPlay = append(cm.inPlay, d)
	}
}

func (cm *ConnManager) removeInPlay(d *Descriptor) {
	if i := slices.Index(cm.inPlay, d); i >= 0 {
		cm.inPlay = slices.Delete(cm.inPlay, i, i+1)
	}
}

// IsInPlay reports whether d's input is drained by the processing tick.
func (cm *ConnManager) IsInPlay(d *Descriptor) bool {
	return slices.Contains(cm.inPlay, d)
}

// InPlay returns a snapshot of the in-play descriptors in insertion order.
func (cm *ConnManager) InPlay() []*Descriptor {
	return slices.Clone(cm.inPlay)
}

// Get returns the live descriptor with the given id.
func (cm *ConnManager) Get(id int) (*Descriptor, bool) {
	d, ok := cm.descriptors[id]
	return d, ok
}

// All returns every live descriptor ordered by id.
func (cm *ConnManager) All() []*Descriptor {
	descs := make([]*Descriptor, 0, len(cm.descriptors))
	for _, d := range cm.descriptors {
		descs = append(descs, d)
	}
	slices.SortFunc(descs, func(a, b *Descriptor) int { return a.id - b.id })
	return descs
}

// Count returns the number of live connections.
func (cm *ConnManager) Count() int {
	return len(cm.descriptors)
}

// Shutdown tells every connection msg and closes it.
func (cm *ConnManager) Shutdown(msg string) {
	for _, d := range cm.All() {
		d.Write(msg)
		d.Close()
	}
}

func (cm *ConnManager) updateGauges() {
	cm.Metrics.setConnections(len(cm.descriptors), len(cm.inPlay))
}
