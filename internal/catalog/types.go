package catalog

// ElementKind is the "type" discriminator of a catalog rule element.
type ElementKind string

const (
	KindAddress  ElementKind = "address"
	KindCategory ElementKind = "category"
)

// Ref points at a Prism address group or service group. Name is only there
// for humans reading the catalog and is never sent to the API.
type Ref struct {
	UUID string `json:"uuid"`
	Name string `json:"name,omitempty"`
}

// Element is one allow-list entry a base rule wants present in a policy.
// The concrete types are *AddressElement and *CategoryElement.
type Element interface {
	Kind() ElementKind
	ServiceRefs() []Ref
	// SetServices replaces the services still owed by this element.
	SetServices([]Ref)
	clone() Element
}

type AddressElement struct {
	Addresses []Ref
	Services  []Ref
}

func (e *AddressElement) Kind() ElementKind   { return KindAddress }
func (e *AddressElement) ServiceRefs() []Ref  { return e.Services }
func (e *AddressElement) SetServices(s []Ref) { e.Services = s }
func (e *AddressElement) clone() Element {
	return &AddressElement{
		Addresses: append([]Ref(nil), e.Addresses...),
		Services:  append([]Ref(nil), e.Services...),
	}
}

type CategoryElement struct {
	Category string
	Value    string
	Services []Ref
}

func (e *CategoryElement) Kind() ElementKind   { return KindCategory }
func (e *CategoryElement) ServiceRefs() []Ref  { return e.Services }
func (e *CategoryElement) SetServices(s []Ref) { e.Services = s }
func (e *CategoryElement) clone() Element {
	return &CategoryElement{
		Category: e.Category,
		Value:    e.Value,
		Services: append([]Ref(nil), e.Services...),
	}
}

type BaseRule struct {
	Name     string
	Inbound  []Element
	Outbound []Element
}

// RuleSet is the loaded catalog. Rule and element order is document order.
type RuleSet struct {
	Rules []BaseRule
}

// Clone returns a deep copy that shares no slices or elements with rs.
func (rs *RuleSet) Clone() *RuleSet {
	out := &RuleSet{Rules: make([]BaseRule, len(rs.Rules))}
	for i, r := range rs.Rules {
		out.Rules[i] = BaseRule{
			Name:     r.Name,
			Inbound:  cloneElements(r.Inbound),
			Outbound: cloneElements(r.Outbound),
		}
	}
	return out
}

func cloneElements(in []Element) []Element {
	out := make([]Element, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}

// Count returns the number of inbound and outbound elements across all rules.
func (rs *RuleSet) Count() (inbound, outbound int) {
	for _, r := range rs.Rules {
		inbound += len(r.Inbound)
		outbound += len(r.Outbound)
	}
	return inbound, outbound
}
