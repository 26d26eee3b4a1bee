// Package policy converts Flow network_security_rule records to and from the
// normalized form the reconciler works on.
package policy

import (
	"fmt"
	"sort"

	"github.com/micrictor/flowbase/internal/catalog"
	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"
)

type wireRecord struct {
	Metadata struct {
		UUID string `mapstructure:"uuid"`
	} `mapstructure:"metadata"`
	Spec struct {
		Name      string                 `mapstructure:"name"`
		Resources map[string]interface{} `mapstructure:"resources"`
	} `mapstructure:"spec"`
}

type wireRef struct {
	UUID string `mapstructure:"uuid"`
}

type wireFilter struct {
	Params map[string][]string `mapstructure:"params"`
}

type wireEntry struct {
	PeerSpecificationType string `mapstructure:"peer_specification_type"`
	// nil when the key is absent, which marks a literal-IP rule.
	AddressGroups *[]wireRef  `mapstructure:"address_group_inclusion_list"`
	ServiceGroups []wireRef   `mapstructure:"service_group_list"`
	Filter        *wireFilter `mapstructure:"filter"`
}

type wireTargetGroup struct {
	Filter wireFilter `mapstructure:"filter"`
}

// Normalize builds a SecurityPolicy from a fetched record. Quarantine
// policies are returned with only identity fields set. A policy without an
// app_rule is returned along with ErrNoAppRule.
func Normalize(rec Record) (*SecurityPolicy, error) {
	var w wireRecord
	if err := mapstructure.Decode(rec, &w); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	p := &SecurityPolicy{UUID: w.Metadata.UUID, Name: w.Spec.Name, raw: rec}

	if _, ok := w.Spec.Resources["quarantine_rule"]; ok {
		p.Quarantine = true
		return p, nil
	}
	app, ok := w.Spec.Resources["app_rule"].(map[string]interface{})
	if !ok {
		return p, fmt.Errorf("policy %s: %w", p.Name, ErrNoAppRule)
	}

	var err error
	if p.Inbound, err = normalizeDirection(p.Name, Inbound, app); err != nil {
		return p, err
	}
	if p.Outbound, err = normalizeDirection(p.Name, Outbound, app); err != nil {
		return p, err
	}

	var tg wireTargetGroup
	if err := mapstructure.Decode(app["target_group"], &tg); err != nil {
		return p, fmt.Errorf("policy %s: decode target_group: %w", p.Name, err)
	}
	for key, values := range tg.Filter.Params {
		for _, v := range values {
			p.TargetGroup = append(p.TargetGroup, CategoryPair{Key: key, Value: v})
		}
	}
	sort.Slice(p.TargetGroup, func(i, j int) bool {
		if p.TargetGroup[i].Key != p.TargetGroup[j].Key {
			return p.TargetGroup[i].Key < p.TargetGroup[j].Key
		}
		return p.TargetGroup[i].Value < p.TargetGroup[j].Value
	})
	return p, nil
}

func normalizeDirection(name string, d Direction, app map[string]interface{}) ([]Entry, error) {
	items, err := allowList(app, d)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", name, err)
	}
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		var we wireEntry
		if err := mapstructure.Decode(item, &we); err != nil {
			return nil, fmt.Errorf("policy %s: decode %s entry %d: %w", name, d, i, err)
		}
		e, err := normalizeEntry(we)
		if err != nil {
			switch te := err.(type) {
			case *UnknownPeerSpecTypeError:
				te.Policy, te.Direction, te.Index = name, d, i
			case *UnsupportedFilterShapeError:
				te.Policy, te.Direction, te.Index = name, d, i
			}
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func normalizeEntry(we wireEntry) (Entry, error) {
	switch we.PeerSpecificationType {
	case PeerAll:
		return Entry{Kind: KindAll}, nil
	case PeerIPSubnet:
		e := Entry{Kind: KindAddressFilter, Services: refUUIDs(we.ServiceGroups)}
		if we.AddressGroups == nil {
			e.Skip = true
			return e, nil
		}
		e.Addresses = refUUIDs(*we.AddressGroups)
		return e, nil
	case PeerFilter:
		if we.Filter == nil || len(we.Filter.Params) != 1 {
			return Entry{}, &UnsupportedFilterShapeError{Params: filterParams(we.Filter)}
		}
		e := Entry{Kind: KindCategoryFilter, Services: refUUIDs(we.ServiceGroups)}
		for key, values := range we.Filter.Params {
			if len(values) != 1 {
				return Entry{}, &UnsupportedFilterShapeError{Params: we.Filter.Params}
			}
			e.CategoryKey, e.CategoryValue = key, values[0]
		}
		return e, nil
	default:
		return Entry{}, &UnknownPeerSpecTypeError{Type: we.PeerSpecificationType}
	}
}

func filterParams(f *wireFilter) map[string][]string {
	if f == nil {
		return nil
	}
	return f.Params
}

func refUUIDs(refs []wireRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.UUID)
	}
	return out
}

func allowList(app map[string]interface{}, d Direction) ([]interface{}, error) {
	v, ok := app[d.listKey()]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s is %T, want a list", d.listKey(), v)
	}
	return items, nil
}

// Denormalize renders a catalog element as a new allow-list entry. Catalog
// names are dropped.
func Denormalize(el catalog.Element) (map[string]interface{}, error) {
	switch e := el.(type) {
	case *catalog.AddressElement:
		return map[string]interface{}{
			"peer_specification_type":      PeerIPSubnet,
			"address_group_inclusion_list": wireRefs("address_group", e.Addresses),
			"service_group_list":           wireRefs("service_group", e.Services),
		}, nil
	case *catalog.CategoryElement:
		return map[string]interface{}{
			"peer_specification_type": PeerFilter,
			"filter": map[string]interface{}{
				"kind_list": []interface{}{"vm"},
				"params": map[string]interface{}{
					e.Category: []interface{}{e.Value},
				},
				"type": "CATEGORIES_MATCH_ALL",
			},
			"service_group_list": wireRefs("service_group", e.Services),
		}, nil
	default:
		return nil, &UnknownShapeError{Type: fmt.Sprintf("%T", el)}
	}
}

func wireRefs(kind string, refs []catalog.Ref) []interface{} {
	out := make([]interface{}, 0, len(refs))
	for _, r := range refs {
		out = append(out, map[string]interface{}{"kind": kind, "uuid": r.UUID})
	}
	return out
}

// DirectionEdit describes the change to one allow list. With AllowAll set
// the list is collapsed to its first ALL entry; Append is added at the end.
type DirectionEdit struct {
	Direction Direction
	AllowAll  bool
	Append    []interface{}
}

// Payload builds the update body: a deep copy of the fetched record without
// its status block, with edits applied. The fetched record is not modified.
func (p *SecurityPolicy) Payload(edits ...DirectionEdit) (Record, error) {
	cp, err := copystructure.Copy(p.raw)
	if err != nil {
		return nil, fmt.Errorf("copy policy %s: %w", p.Name, err)
	}
	var out Record
	switch v := cp.(type) {
	case Record:
		out = v
	case map[string]interface{}:
		out = Record(v)
	default:
		return nil, fmt.Errorf("copy policy %s: unexpected %T", p.Name, cp)
	}
	delete(out, "status")
	if len(edits) == 0 {
		return out, nil
	}

	spec, _ := out["spec"].(map[string]interface{})
	resources, _ := spec["resources"].(map[string]interface{})
	app, ok := resources["app_rule"].(map[string]interface{})
	if !ok {
		return out, fmt.Errorf("policy %s: %w", p.Name, ErrNoAppRule)
	}
	for _, ed := range edits {
		if raw, present := app[ed.Direction.listKey()]; (!present || raw == nil) && len(ed.Append) == 0 {
			// Nothing to write; do not add a key the record never had.
			continue
		}
		items, err := allowList(app, ed.Direction)
		if err != nil {
			return out, fmt.Errorf("policy %s: %w", p.Name, err)
		}
		if ed.AllowAll {
			items = firstAllowAll(items)
		}
		list := make([]interface{}, 0, len(items)+len(ed.Append))
		list = append(list, items...)
		list = append(list, ed.Append...)
		app[ed.Direction.listKey()] = list
	}
	return out, nil
}

func firstAllowAll(items []interface{}) []interface{} {
	for _, item := range items {
		m, _ := item.(map[string]interface{})
		if m["peer_specification_type"] == PeerAll {
			return []interface{}{item}
		}
	}
	return []interface{}{map[string]interface{}{"peer_specification_type": PeerAll}}
}
