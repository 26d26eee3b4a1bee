package reconcile

import (
	"fmt"

	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/micrictor/flowbase/internal/policy"
)

// Logger is the sink the reconciler reports to. *logrus.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Match records services one live entry took off one tracked element.
type Match struct {
	Rule      string
	Direction policy.Direction
	// Entry is the index of the live allow-list entry.
	Entry   int
	Removed []string
	// Satisfied is set when the element had no services left and was
	// dropped from the tracker.
	Satisfied bool
}

type Matcher struct {
	log Logger
}

func NewMatcher(log Logger) *Matcher {
	return &Matcher{log: log}
}

// Match drains v with the live entries of the same direction. An element
// leaves the tracker only once all of its services are accounted for.
func (m *Matcher) Match(entries []policy.Entry, v *View) ([]Match, error) {
	var matches []Match
	for i, e := range entries {
		switch e.Kind {
		case policy.KindAll:
			m.log.Infof("\tAllow all %s traffic.", v.Direction)
			v.AllowAll = true
		case policy.KindAddressFilter:
			if e.Skip {
				m.log.Infof("\t%s entry %d is IP based, skipping.", v.Direction, i)
				continue
			}
			matches = append(matches, m.drainAddress(i, e, v)...)
		case policy.KindCategoryFilter:
			m.log.Infof("\t%s filter by category %s: %s", v.Direction, e.CategoryKey, e.CategoryValue)
			matches = append(matches, m.drainCategory(i, e, v)...)
		default:
			return matches, fmt.Errorf("%s entry %d: unknown entry kind %s", v.Direction, i, e.Kind)
		}
	}
	return matches, nil
}

func (m *Matcher) drainAddress(idx int, e policy.Entry, v *View) []Match {
	live := toSet(e.Addresses)
	services := toSet(e.Services)

	var out []Match
	for _, t := range v.items {
		el, ok := t.element.(*catalog.AddressElement)
		if !ok {
			continue
		}
		matched, unmatched := partition(el.Addresses, live)
		if len(matched) == 0 {
			continue
		}
		m.log.Infof("\t%s rule type address match for base rule: %s", v.Direction, t.rule)

		remaining, removed := partitionOut(el.Services, services)
		if len(removed) == 0 {
			continue
		}
		el.SetServices(remaining)
		match := Match{Rule: t.rule, Direction: v.Direction, Entry: idx, Removed: removed}
		if len(remaining) == 0 {
			match.Satisfied = true
			if len(unmatched) > 0 {
				m.log.Warnf("\tbase rule %s: services satisfied by %s entry %d, addresses %v are not covered and will not be added",
					t.rule, v.Direction, idx, refUUIDs(unmatched))
			}
			el.Addresses = unmatched
		}
		out = append(out, match)
	}
	v.keep(owed)
	return out
}

func (m *Matcher) drainCategory(idx int, e policy.Entry, v *View) []Match {
	services := toSet(e.Services)

	var out []Match
	for _, t := range v.items {
		el, ok := t.element.(*catalog.CategoryElement)
		if !ok || el.Category != e.CategoryKey || el.Value != e.CategoryValue {
			continue
		}
		m.log.Infof("\t%s rule type category match for base rule: %s", v.Direction, t.rule)

		remaining, removed := partitionOut(el.Services, services)
		if len(removed) == 0 {
			continue
		}
		el.SetServices(remaining)
		out = append(out, Match{
			Rule:      t.rule,
			Direction: v.Direction,
			Entry:     idx,
			Removed:   removed,
			Satisfied: len(remaining) == 0,
		})
	}
	v.keep(owed)
	return out
}

func owed(t *tracked) bool {
	return len(t.element.ServiceRefs()) > 0
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// partition splits refs into those whose uuid is in set and the rest,
// keeping order.
func partition(refs []catalog.Ref, set map[string]bool) (in, out []catalog.Ref) {
	for _, r := range refs {
		if set[r.UUID] {
			in = append(in, r)
		} else {
			out = append(out, r)
		}
	}
	return in, out
}

// partitionOut returns the refs not in set and the uuids that were.
func partitionOut(refs []catalog.Ref, set map[string]bool) (remaining []catalog.Ref, removed []string) {
	in, out := partition(refs, set)
	return out, refUUIDs(in)
}

func refUUIDs(refs []catalog.Ref) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.UUID)
	}
	return ids
}
