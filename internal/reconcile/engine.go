// Package reconcile merges the base rule catalog into Flow security
// policies. Rules already present in a policy are left alone; missing ones
// are appended. Nothing is removed except when an ALL entry makes the rest of
// a direction redundant.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/micrictor/flowbase/internal/policy"
)

var directions = []policy.Direction{policy.Inbound, policy.Outbound}

// Result is the outcome of reconciling one policy.
type Result struct {
	UUID string
	Name string
	// Skipped policies are never updated; SkipReason says why.
	Skipped    bool
	SkipReason string
	// Changed is false when the policy already carries every base rule.
	Changed  bool
	Inbound  int
	Outbound int
	Matches  []Match
	// Payload is the update body. On error it holds whatever was assembled
	// so it can be logged.
	Payload policy.Record
}

func (r *Result) added(d policy.Direction, n int) {
	if d == policy.Inbound {
		r.Inbound += n
	} else {
		r.Outbound += n
	}
}

type Engine struct {
	rules   *catalog.RuleSet
	log     Logger
	matcher *Matcher
}

// NewEngine returns an engine for rules. rules is only read; every policy
// gets its own tracker.
func NewEngine(rules *catalog.RuleSet, log Logger) *Engine {
	return &Engine{rules: rules, log: log, matcher: NewMatcher(log)}
}

// Reconcile computes the update for one fetched policy record.
func (e *Engine) Reconcile(rec policy.Record) (*Result, error) {
	res := &Result{UUID: rec.UUID(), Name: rec.Name()}

	p, err := policy.Normalize(rec)
	if errors.Is(err, policy.ErrNoAppRule) {
		e.log.Infof("Policy %s has no app rule, skipping.", res.Name)
		res.Skipped, res.SkipReason = true, "no app rule"
		return res, nil
	}
	if err != nil {
		res.Payload = rec
		if p != nil {
			res.Payload, _ = p.Payload()
		}
		return res, err
	}
	if p.Quarantine {
		e.log.Infof("Policy %s is a quarantine policy, skipping.", p.Name)
		res.Skipped, res.SkipReason = true, "quarantine"
		return res, nil
	}

	e.log.Infof("Policy Name: %s", p.Name)
	tr := NewTracker(e.rules)

	for _, d := range directions {
		matches, err := e.matcher.Match(p.Entries(d), tr.View(d))
		res.Matches = append(res.Matches, matches...)
		if err != nil {
			res.Payload, _ = p.Payload()
			return res, fmt.Errorf("policy %s: %w", p.Name, err)
		}
	}

	e.suppressConflicts(tr, p.TargetGroup)

	edits := make([]policy.DirectionEdit, 0, len(directions))
	for _, d := range directions {
		v := tr.View(d)
		edit := policy.DirectionEdit{Direction: d, AllowAll: v.AllowAll}
		if !v.AllowAll {
			for _, t := range v.items {
				entry, err := policy.Denormalize(t.element)
				if err != nil {
					res.Payload, _ = p.Payload(append(edits, edit)...)
					return res, fmt.Errorf("policy %s: base rule %s: %w", p.Name, t.rule, err)
				}
				e.log.Infof("\tAdding %s %s rule from base rule: %s", d, t.element.Kind(), t.rule)
				edit.Append = append(edit.Append, entry)
			}
		}
		res.added(d, len(edit.Append))
		if len(edit.Append) > 0 || (v.AllowAll && !onlyAllowAll(p.Entries(d))) {
			res.Changed = true
		}
		edits = append(edits, edit)
	}

	res.Payload, err = p.Payload(edits...)
	if err != nil {
		return res, err
	}
	return res, nil
}

// suppressConflicts drops category elements equal to one of the policy's
// own target group categories. A policy never gets a rule pointing at the
// group it protects.
func (e *Engine) suppressConflicts(tr *Tracker, target []policy.CategoryPair) {
	if len(target) == 0 {
		return
	}
	for _, d := range directions {
		tr.View(d).keep(func(t *tracked) bool {
			el, ok := t.element.(*catalog.CategoryElement)
			if !ok {
				return true
			}
			for _, pair := range target {
				if el.Category == pair.Key && el.Value == pair.Value {
					e.log.Infof("\t%s rule %s:%s from base rule %s matches the policy target group, not adding.",
						d, el.Category, el.Value, t.rule)
					return false
				}
			}
			return true
		})
	}
}

func onlyAllowAll(entries []policy.Entry) bool {
	return len(entries) == 1 && entries[0].Kind == policy.KindAll
}
