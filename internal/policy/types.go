package policy

import "fmt"

// Record is a network_security_rule entity exactly as Prism returned it.
type Record map[string]interface{}

// UUID returns metadata.uuid, or "" when the record has none.
func (r Record) UUID() string {
	md, _ := r["metadata"].(map[string]interface{})
	id, _ := md["uuid"].(string)
	return id
}

// Name returns spec.name, or "" when the record has none.
func (r Record) Name() string {
	spec, _ := r["spec"].(map[string]interface{})
	name, _ := spec["name"].(string)
	return name
}

const (
	PeerAll      = "ALL"
	PeerIPSubnet = "IP_SUBNET"
	PeerFilter   = "FILTER"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

func (d Direction) listKey() string {
	return string(d) + "_allow_list"
}

type EntryKind int

const (
	KindAll EntryKind = iota
	KindAddressFilter
	KindCategoryFilter
)

func (k EntryKind) String() string {
	switch k {
	case KindAll:
		return "ALL"
	case KindAddressFilter:
		return "AddressFilter"
	case KindCategoryFilter:
		return "CategoryFilter"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry is the normalized form of one allow-list entry.
type Entry struct {
	Kind EntryKind
	// Addresses holds address group uuids (AddressFilter only).
	Addresses []string
	Services  []string
	// CategoryKey and CategoryValue are set for CategoryFilter only.
	CategoryKey   string
	CategoryValue string
	// Skip marks an IP_SUBNET entry written with literal IPs instead of
	// address groups. Such entries are never matched against base rules.
	Skip bool
}

type CategoryPair struct {
	Key   string
	Value string
}

// SecurityPolicy is the normalized view of a Record.
type SecurityPolicy struct {
	UUID       string
	Name       string
	Quarantine bool
	Inbound    []Entry
	Outbound   []Entry
	// TargetGroup lists the category pairs selecting the VMs this policy
	// protects, sorted by key then value.
	TargetGroup []CategoryPair

	raw Record
}

func (p *SecurityPolicy) Entries(d Direction) []Entry {
	if d == Inbound {
		return p.Inbound
	}
	return p.Outbound
}
