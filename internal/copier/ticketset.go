package copier

import "sort"

// TicketSet holds master tickets that already have slave copies. A ticket is
// added once when it is copied or adopted and removed once when its master
// position closes.
type TicketSet map[int64]struct{}

func NewTicketSet(tickets ...int64) TicketSet {
	s := make(TicketSet, len(tickets))
	for _, t := range tickets {
		s[t] = struct{}{}
	}
	return s
}

func (s TicketSet) Add(t int64) { s[t] = struct{}{} }

func (s TicketSet) Remove(t int64) { delete(s, t) }

func (s TicketSet) Has(t int64) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the tickets in ascending order.
func (s TicketSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
