package session

import (
	"fmt"
	"io"
)

// Dump writes the state of the session and its items to w.
//
// verbosity 0 prints the session line with the item count, 1 adds the items with a bad
// status, 2 adds every item with index, name, tag, local type, remote type, status and
// address, and 3 or more adds the sampling interval, queue size and discard policy.
func (s *Session) Dump(w io.Writer, verbosity int) {
	items := s.Items()
	fmt.Fprintf(w, "session %s endpoint=%s state=%s items=%d subscriptions=%d\n",
		s.tag, s.endpoint, s.State(), len(items), len(s.Subscriptions()))

	if verbosity <= 0 {
		return
	}

	for _, it := range items {
		if verbosity == 1 && it.Status().IsGood() {
			continue
		}
		it.dump(w, verbosity)
	}
}

func (it *Item) dump(w io.Writer, verbosity int) {
	it.mu.Lock()
	remote := it.remoteType.String()
	if it.value.IsArray() {
		remote += "[]"
	}
	status := it.status
	it.mu.Unlock()

	fmt.Fprintf(w, "  %4d %-24s %-12s %-14s %-12s %-28s %s",
		it.index, it.cfg.name, it.Tag(), it.slot, remote, status, it.addr.Raw())

	if verbosity >= 3 {
		discard := "old"
		if !it.cfg.discardOldest {
			discard = "new"
		}
		sampling := "publishing"
		if it.cfg.samplingInterval >= 0 {
			sampling = it.cfg.samplingInterval.String()
		}
		fmt.Fprintf(w, " sampling=%s qsize=%d discard=%s", sampling, it.cfg.queueSize, discard)
	}
	fmt.Fprintln(w)
}

// Dump writes every session of the registry ordered by tag, followed by its subscriptions.
func (r *Registry) Dump(w io.Writer, verbosity int) {
	sessions := r.Sessions()
	fmt.Fprintf(w, "%d sessions\n", len(sessions))

	for _, s := range sessions {
		s.Dump(w, verbosity)
		for _, sub := range s.Subscriptions() {
			fmt.Fprintf(w, "  subscription %s items=%d active=%t publishing=%s\n",
				sub.tag, len(sub.Items()), sub.Active(), sub.cfg.publishingInterval)
		}
	}
}
