package reconcile

import (
	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/micrictor/flowbase/internal/policy"
)

// tracked is a catalog element the policy still owes, with the name of the
// base rule it came from.
type tracked struct {
	rule    string
	element catalog.Element
}

// View is one direction of a Tracker.
type View struct {
	Direction policy.Direction
	// AllowAll is set once an ALL entry is seen in this direction. Nothing
	// is appended to an allow-all direction.
	AllowAll bool
	items    []*tracked
}

// Len returns the number of elements still owed.
func (v *View) Len() int { return len(v.items) }

// Elements returns the elements still owed, in catalog order.
func (v *View) Elements() []catalog.Element {
	out := make([]catalog.Element, 0, len(v.items))
	for _, t := range v.items {
		out = append(out, t.element)
	}
	return out
}

// keep drops every item for which fn returns false. Callers decide removals
// during a scan and apply them here afterwards.
func (v *View) keep(fn func(*tracked) bool) {
	kept := v.items[:0]
	for _, t := range v.items {
		if fn(t) {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(v.items); i++ {
		v.items[i] = nil
	}
	v.items = kept
}

// Tracker is a per-policy working copy of the catalog, drained as base rules
// are found in the policy.
type Tracker struct {
	Inbound  *View
	Outbound *View
}

// NewTracker deep-copies rules; draining the tracker never touches them.
func NewTracker(rules *catalog.RuleSet) *Tracker {
	t := &Tracker{
		Inbound:  &View{Direction: policy.Inbound},
		Outbound: &View{Direction: policy.Outbound},
	}
	for _, r := range rules.Clone().Rules {
		for _, e := range r.Inbound {
			t.Inbound.items = append(t.Inbound.items, &tracked{rule: r.Name, element: e})
		}
		for _, e := range r.Outbound {
			t.Outbound.items = append(t.Outbound.items, &tracked{rule: r.Name, element: e})
		}
	}
	return t
}

func (t *Tracker) View(d policy.Direction) *View {
	if d == policy.Inbound {
		return t.Inbound
	}
	return t.Outbound
}
