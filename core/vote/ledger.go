// Package vote implements the Reddit-style vote ledger kept on every question:
// one entry per voter, valued "up" or "down".
package vote

import (
	"encoding/json"
	"fmt"
)

// Direction is a voter's stance on a question. None means no vote.
type Direction string

const (
	None Direction = ""
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts exactly "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	}
	return None, fmt.Errorf("invalid vote direction %q", s)
}

func (d Direction) Valid() bool { return d == Up || d == Down }

func (d Direction) weight() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	}
	return 0
}

// MarshalJSON renders None as null.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*d = None
		return nil
	}
	*d = Direction(*s)
	return nil
}

// Ledger maps voter identifiers to their vote. A missing key means no vote.
type Ledger map[string]Direction

// FromStrings normalizes a string map (eg. a JSON column or an in-memory map)
// into a Ledger. Entries that are not exactly "up" or "down" are dropped.
func FromStrings(m map[string]string) Ledger {
	l := make(Ledger, len(m))
	for voter, v := range m {
		if d := Direction(v); voter != "" && d.Valid() {
			l[voter] = d
		}
	}
	return l
}

// FromRaw normalizes a plain key/value object, as decoded from a lean
// document query (JSON or BSON), into a Ledger.
func FromRaw(raw map[string]interface{}) Ledger {
	l := make(Ledger, len(raw))
	for voter, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if d := Direction(s); voter != "" && d.Valid() {
			l[voter] = d
		}
	}
	return l
}

// Strings is the storage representation of the ledger.
func (l Ledger) Strings() map[string]string {
	m := make(map[string]string, len(l))
	for voter, d := range l {
		m[voter] = string(d)
	}
	return m
}

// Net returns the number of up votes minus the number of down votes.
func (l Ledger) Net() int {
	var net int
	for _, d := range l {
		net += d.weight()
	}
	return net
}

// Get returns the voter's current vote, or None.
func (l Ledger) Get(voter string) Direction {
	if l == nil || voter == "" {
		return None
	}
	return l[voter]
}

func (l Ledger) Clone() Ledger {
	c := make(Ledger, len(l))
	for voter, d := range l {
		c[voter] = d
	}
	return c
}

// Cast applies a vote request for voter and returns the vote before and after.
// Casting the current direction again retracts the vote; casting the opposite
// direction flips it. l must be non-nil.
func (l Ledger) Cast(voter string, requested Direction) (prev, next Direction) {
	prev = l.Get(voter)
	next = Transition(prev, requested)
	if next == None {
		delete(l, voter)
	} else {
		l[voter] = next
	}
	return prev, next
}

// Transition is the per-voter state machine.
func Transition(current, requested Direction) Direction {
	if current == requested {
		return None
	}
	return requested
}

// CacheValue is the non-negative `upvotes` compatibility value for a net total.
func CacheValue(net int) int {
	if net < 0 {
		return 0
	}
	return net
}

// Change is a single voter's ledger mutation.
type Change struct {
	Voter string
	From  Direction
	To    Direction
}

// Diff lists the per-voter changes turning `before` into `after`.
func Diff(before, after Ledger) []Change {
	var changes []Change
	for voter, d := range after {
		if prev := before.Get(voter); prev != d {
			changes = append(changes, Change{Voter: voter, From: prev, To: d})
		}
	}
	for voter, d := range before {
		if _, ok := after[voter]; !ok {
			changes = append(changes, Change{Voter: voter, From: d, To: None})
		}
	}
	return changes
}
