// Package engine implements incremental search: a debounced search term,
// page accumulation on scroll, a retrieval ceiling and stale-response
// discarding. Machine holds the pure state transitions; Engine drives a
// Machine with timers and network calls.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/client/api"
)

// ErrStaleResponseDiscarded is returned for responses that no longer match
// the active request.
var ErrStaleResponseDiscarded = errors.New("stale response discarded")

type Phase int

const (
	Idle Phase = iota
	Debouncing
	FetchingFirstPage
	FetchingNextPage
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case FetchingFirstPage:
		return "fetching first page"
	case FetchingNextPage:
		return "fetching next page"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Request identifies one issued fetch. Seq increases with every request.
type Request struct {
	Seq   uint64
	Term  string
	Page  int
	Limit int
}

// Response carries the outcome of a Request.
type Response struct {
	Request Request
	Results []api.Hit
	Total   int64
	Latency time.Duration
	Err     error
}

type FetchKind string

const (
	FirstPage FetchKind = "first page"
	NextPage  FetchKind = "next page"
)

// FetchError records a failed fetch in State.
type FetchError struct {
	Kind FetchKind
	Term string
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (page %d) for %q: %v", e.Kind, e.Page, e.Term, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// State is the observable search state.
type State struct {
	Phase              Phase
	SearchTerm         string
	CurrentPage        int
	Results            []api.Hit
	HasMore            bool
	InFlight           bool
	PaginationInFlight bool
	LastError          *FetchError
	TotalReported      int64
	LastLatency        *time.Duration
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	s.Results = slices.Clone(s.Results)
	if s.LastLatency != nil {
		l := *s.LastLatency
		s.LastLatency = &l
	}
	return s
}

// Effect is an action the driver must perform after a transition.
type Effect interface {
	effect()
}

// ArmDebounce asks for a DebounceFired(Generation) after the debounce
// delay. Arming supersedes every earlier generation.
type ArmDebounce struct {
	Generation uint64
}

// Fetch asks for Request to be executed and its Response fed back.
type Fetch struct {
	Request Request
}

func (ArmDebounce) effect() {}
func (Fetch) effect()       {}

// Machine is the search state machine. It is not safe for concurrent use.
type Machine struct {
	limit   int
	ceiling int

	state      State
	generation uint64
	seq        uint64
	active     uint64 // seq of the request whose response is awaited, 0 if none
}

// NewMachine returns a machine fetching limit results per page and at most
// ceiling results per term.
func NewMachine(limit, ceiling int) *Machine {
	if limit < 1 {
		limit = 1
	}
	if ceiling < limit {
		ceiling = limit
	}
	return &Machine{limit: limit, ceiling: ceiling}
}

func (m *Machine) State() State {
	return m.state.Clone()
}

// TermChanged records the new term immediately and restarts the debounce.
// Any awaited response becomes stale.
func (m *Machine) TermChanged(term string) []Effect {
	m.generation++
	m.active = 0
	m.state.SearchTerm = term
	m.state.Phase = Debouncing
	m.state.InFlight = false
	m.state.PaginationInFlight = false
	return []Effect{ArmDebounce{Generation: m.generation}}
}

// DebounceFired starts the first-page fetch for the current term. Firings
// of superseded generations are ignored.
func (m *Machine) DebounceFired(generation uint64) []Effect {
	if generation != m.generation || m.state.Phase != Debouncing {
		return nil
	}

	m.state.CurrentPage = 1
	m.state.Results = nil
	m.state.HasMore = true
	m.state.LastError = nil
	m.state.TotalReported = 0
	m.state.Phase = FetchingFirstPage
	m.state.InFlight = true
	m.state.PaginationInFlight = false

	return []Effect{Fetch{Request: m.issue(1)}}
}

// ScrollNearEnd requests the next page when the engine is idle, more results
// may exist and the ceiling allows it. Reaching the ceiling clears HasMore
// until the term changes.
func (m *Machine) ScrollNearEnd() []Effect {
	if m.state.Phase != Idle || !m.state.HasMore || m.state.InFlight || m.state.CurrentPage < 1 {
		return nil
	}

	next := m.state.CurrentPage + 1
	if next*m.limit > m.ceiling {
		m.state.HasMore = false
		return nil
	}

	m.state.CurrentPage = next
	m.state.Phase = FetchingNextPage
	m.state.InFlight = true
	m.state.PaginationInFlight = true

	return []Effect{Fetch{Request: m.issue(next)}}
}

func (m *Machine) issue(page int) Request {
	m.seq++
	m.active = m.seq
	return Request{Seq: m.seq, Term: m.state.SearchTerm, Page: page, Limit: m.limit}
}

// ResponseReceived applies the awaited response. Responses for superseded
// requests or terms return ErrStaleResponseDiscarded and change nothing.
func (m *Machine) ResponseReceived(resp Response) error {
	req := resp.Request
	if m.active == 0 || req.Seq != m.active || req.Term != m.state.SearchTerm {
		return ErrStaleResponseDiscarded
	}

	first := req.Page == 1
	m.active = 0
	m.state.Phase = Idle
	m.state.InFlight = false
	m.state.PaginationInFlight = false

	if resp.Err != nil {
		kind := NextPage
		if first {
			kind = FirstPage
		}
		m.state.LastError = &FetchError{Kind: kind, Term: req.Term, Page: req.Page, Err: resp.Err}
		if first {
			m.state.Results = nil
			m.state.HasMore = false
		} else {
			// step back so the next scroll signal retries this page
			m.state.CurrentPage = req.Page - 1
		}
		return nil
	}

	if first {
		m.state.Results = slices.Clone(resp.Results)
	} else {
		m.state.Results = append(m.state.Results, resp.Results...)
	}
	if len(m.state.Results) > m.ceiling {
		m.state.Results = m.state.Results[:m.ceiling]
	}

	latency := resp.Latency
	m.state.LastLatency = &latency
	m.state.TotalReported = resp.Total
	m.state.LastError = nil
	m.state.HasMore = len(resp.Results) == req.Limit && len(m.state.Results) < m.ceiling

	return nil
}
