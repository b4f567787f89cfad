package importer

import (
	"fmt"

	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// Ticket identifies a list of conformances whose completion was delayed.
type Ticket uint64

type selectorKey struct {
	selector string
	instance bool
}

// Coordinator tracks re-entrant import depth. Declarations produced while
// any import is on the stack and conformances scheduled for completion are
// queued, then drained in FIFO order when the outermost import returns.
type Coordinator struct {
	depth    int
	draining bool

	pendingDecls        []*hostast.Decl
	pendingConformances []*hostast.Conformance

	delayed    map[Ticket][]*hostast.Conformance
	nextTicket Ticket

	activeSelectors map[selectorKey]bool

	announce func(*hostast.Decl)
	complete func(*hostast.Conformance)

	drains int
}

// NewCoordinator creates an idle coordinator. announce receives each
// registered declaration and complete each scheduled conformance, both only
// at depth zero.
func NewCoordinator(announce func(*hostast.Decl), complete func(*hostast.Conformance)) *Coordinator {
	return &Coordinator{
		delayed:         make(map[Ticket][]*hostast.Conformance),
		nextTicket:      1,
		activeSelectors: make(map[selectorKey]bool),
		announce:        announce,
		complete:        complete,
	}
}

// ImportScope is one level of import depth. Exit must be called on every
// path out of the import; calling it more than once has no effect.
type ImportScope struct {
	c    *Coordinator
	done bool
}

// Enter increments the import depth.
func (c *Coordinator) Enter() *ImportScope {
	c.depth++
	return &ImportScope{c: c}
}

// Exit decrements the import depth and drains the queues when it reaches
// zero.
func (s *ImportScope) Exit() {
	if s.done {
		return
	}
	s.done = true
	c := s.c
	c.depth--
	if c.depth < 0 {
		panic("importer: import depth went negative")
	}
	if c.depth == 0 {
		c.drain()
	}
}

// Depth returns the current import depth.
func (c *Coordinator) Depth() int { return c.depth }

// Register queues a newly produced declaration for announcement.
func (c *Coordinator) Register(d *hostast.Decl) {
	c.pendingDecls = append(c.pendingDecls, d)
	if c.depth == 0 {
		c.drain()
	}
}

// ScheduleConformance queues a conformance for completion.
func (c *Coordinator) ScheduleConformance(conf *hostast.Conformance) {
	c.pendingConformances = append(c.pendingConformances, conf)
	if c.depth == 0 {
		c.drain()
	}
}

// drain runs queued work until both queues are empty. Work queued by the
// callbacks themselves is picked up by the same loop; a drain started from
// inside a callback returns immediately.
func (c *Coordinator) drain() {
	if c.draining {
		return
	}
	c.draining = true
	defer func() { c.draining = false }()
	for len(c.pendingDecls) > 0 || len(c.pendingConformances) > 0 {
		c.drains++
		decls := c.pendingDecls
		c.pendingDecls = nil
		for _, d := range decls {
			c.announce(d)
		}
		confs := c.pendingConformances
		c.pendingConformances = nil
		for _, conf := range confs {
			c.complete(conf)
		}
	}
}

// Pending returns the number of queued declarations and conformances.
func (c *Coordinator) Pending() (decls, conformances int) {
	return len(c.pendingDecls), len(c.pendingConformances)
}

// AllocateDelayedConformance stores list under a fresh ticket.
func (c *Coordinator) AllocateDelayedConformance(list []*hostast.Conformance) Ticket {
	t := c.nextTicket
	c.nextTicket++
	c.delayed[t] = list
	return t
}

// TakeDelayedConformance returns and forgets the list stored under t. An
// unknown or already redeemed ticket is a programming error and panics.
func (c *Coordinator) TakeDelayedConformance(t Ticket) []*hostast.Conformance {
	list, ok := c.delayed[t]
	if !ok {
		panic(fmt.Sprintf("importer: delayed conformance ticket %d is unknown or already redeemed", t))
	}
	delete(c.delayed, t)
	return list
}

// OutstandingTickets returns the number of unredeemed tickets.
func (c *Coordinator) OutstandingTickets() int { return len(c.delayed) }

// WithSelectorGuard runs fn unless a query for the same selector and
// instance-ness is already running, in which case it reports false without
// calling fn.
func (c *Coordinator) WithSelectorGuard(sel names.Selector, instance bool, fn func() bool) bool {
	k := selectorKey{sel.String(), instance}
	if c.activeSelectors[k] {
		return false
	}
	c.activeSelectors[k] = true
	defer delete(c.activeSelectors, k)
	return fn()
}

// ActiveSelectors returns the number of guarded queries in flight.
func (c *Coordinator) ActiveSelectors() int { return len(c.activeSelectors) }
