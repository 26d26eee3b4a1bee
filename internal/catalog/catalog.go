// Package catalog loads the base rule document: the address/category plus
// service group tuples every Flow security policy is expected to allow.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed catalog.schema.json
var schemaDoc []byte

const schemaURL = "https://flowbase.local/schemas/catalog.schema.json"

var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaDoc)); err != nil {
		panic(fmt.Sprintf("catalog schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// FormatError reports a catalog document that is not usable. Path is a JSON
// pointer into the document ("" for the whole document).
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("catalog: %s", e.Reason)
	}
	return fmt.Sprintf("catalog: %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

type document struct {
	Rules []ruleDoc `json:"rules"`
}

type ruleDoc struct {
	Name     string       `json:"name"`
	Inbound  []elementDoc `json:"inbound_rules"`
	Outbound []elementDoc `json:"outbound_rules"`
}

type elementDoc struct {
	Type           string `json:"type"`
	AddressList    []Ref  `json:"address_list"`
	ServiceList    []Ref  `json:"service_list"`
	LookupCategory string `json:"lookup_category"`
	LookupValue    string `json:"lookup_value"`
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Load(data)
}

// Load parses a catalog document. Every failure is a *FormatError.
func Load(data []byte) (*RuleSet, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if err := documentSchema.Validate(raw); err != nil {
		return nil, schemaError(err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Reason: "decode", Err: err}
	}

	rs := &RuleSet{Rules: make([]BaseRule, 0, len(doc.Rules))}
	for i, rd := range doc.Rules {
		rule := BaseRule{Name: rd.Name}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule-%d", i)
		}
		var err error
		if rule.Inbound, err = buildElements(fmt.Sprintf("/rules/%d/inbound_rules", i), rd.Inbound); err != nil {
			return nil, err
		}
		if rule.Outbound, err = buildElements(fmt.Sprintf("/rules/%d/outbound_rules", i), rd.Outbound); err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

func buildElements(path string, docs []elementDoc) ([]Element, error) {
	out := make([]Element, 0, len(docs))
	for i, d := range docs {
		p := fmt.Sprintf("%s/%d", path, i)
		services, err := uniqueRefs(p+"/service_list", d.ServiceList)
		if err != nil {
			return nil, err
		}
		switch ElementKind(d.Type) {
		case KindAddress:
			addresses, err := uniqueRefs(p+"/address_list", d.AddressList)
			if err != nil {
				return nil, err
			}
			out = append(out, &AddressElement{Addresses: addresses, Services: services})
		case KindCategory:
			out = append(out, &CategoryElement{
				Category: d.LookupCategory,
				Value:    d.LookupValue,
				Services: services,
			})
		default:
			return nil, &FormatError{Path: p + "/type", Reason: fmt.Sprintf("unknown element type %q", d.Type)}
		}
	}
	return out, nil
}

// uniqueRefs validates uuids and collapses duplicates, keeping the first
// occurrence.
func uniqueRefs(path string, refs []Ref) ([]Ref, error) {
	seen := make(map[string]bool, len(refs))
	out := make([]Ref, 0, len(refs))
	for i, r := range refs {
		if _, err := uuid.Parse(r.UUID); err != nil {
			return nil, &FormatError{Path: fmt.Sprintf("%s/%d/uuid", path, i), Reason: fmt.Sprintf("invalid uuid %q", r.UUID), Err: err}
		}
		if seen[r.UUID] {
			continue
		}
		seen[r.UUID] = true
		out = append(out, r)
	}
	return out, nil
}

func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &FormatError{Reason: err.Error(), Err: err}
	}
	// The deepest cause carries the most specific location.
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &FormatError{Path: ve.InstanceLocation, Reason: ve.Message, Err: err}
}
