package policy

import (
	"errors"
	"fmt"
)

// ErrNoAppRule is returned for policies without an app_rule, such as
// isolation policies. They carry no allow lists to reconcile.
var ErrNoAppRule = errors.New("policy has no app_rule")

// UnknownPeerSpecTypeError is an allow-list entry whose
// peer_specification_type is not ALL, IP_SUBNET or FILTER.
type UnknownPeerSpecTypeError struct {
	Policy    string
	Direction Direction
	Index     int
	Type      string
}

func (e *UnknownPeerSpecTypeError) Error() string {
	return fmt.Sprintf("policy %s: %s entry %d: unknown peer_specification_type %q", e.Policy, e.Direction, e.Index, e.Type)
}

// UnsupportedFilterShapeError is a FILTER entry whose params are not a
// single category with a single value.
type UnsupportedFilterShapeError struct {
	Policy    string
	Direction Direction
	Index     int
	Params    map[string][]string
}

func (e *UnsupportedFilterShapeError) Error() string {
	return fmt.Sprintf("policy %s: %s entry %d: filter params must be one category with one value, got %v", e.Policy, e.Direction, e.Index, e.Params)
}

// UnknownShapeError is a rule element variant the adapter cannot serialize.
type UnknownShapeError struct {
	Type string
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("unknown rule element shape %s", e.Type)
}
