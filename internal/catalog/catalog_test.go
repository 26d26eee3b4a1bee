package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const (
	addrDNS  = "6b0f3c9e-1b59-4c3e-9e0a-1d4a52b0a001"
	svcDNS   = "0c7f0d58-2e3a-4f4b-8a4f-7c5e3b1d0002"
	svcNTP   = "9a1d2e4c-5b6f-4a7b-8c9d-0e1f2a3b0003"
	sampleID = "1f2e3d4c-5b6a-4978-8695-a4b3c2d10004"
)

const sampleCatalog = `{
  "rules": [
    {
      "name": "Infrastructure",
      "inbound_rules": [
        {
          "type": "address",
          "address_list": [{"uuid": "` + addrDNS + `", "name": "DNS servers"}],
          "service_list": [
            {"uuid": "` + svcDNS + `", "name": "dns"},
            {"uuid": "` + svcNTP + `", "name": "ntp"},
            {"uuid": "` + svcDNS + `", "name": "dns again"}
          ]
        }
      ],
      "outbound_rules": [
        {
          "type": "category",
          "lookup_category": "AppType",
          "lookup_value": "Monitoring",
          "service_list": [{"uuid": "` + sampleID + `"}]
        }
      ]
    },
    {
      "inbound_rules": [],
      "outbound_rules": []
    }
  ]
}`

func TestLoad(t *testing.T) {
	rs, err := Load([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rs.Rules))
	}
	if rs.Rules[0].Name != "Infrastructure" {
		t.Errorf("name = %q", rs.Rules[0].Name)
	}
	if rs.Rules[1].Name != "rule-1" {
		t.Errorf("unnamed rule got %q, want rule-1", rs.Rules[1].Name)
	}

	addr, ok := rs.Rules[0].Inbound[0].(*AddressElement)
	if !ok {
		t.Fatalf("inbound element is %T, want *AddressElement", rs.Rules[0].Inbound[0])
	}
	if len(addr.Services) != 2 {
		t.Errorf("duplicate service not collapsed: %v", addr.Services)
	}
	if addr.Addresses[0].Name != "DNS servers" {
		t.Errorf("address name = %q", addr.Addresses[0].Name)
	}

	cat, ok := rs.Rules[0].Outbound[0].(*CategoryElement)
	if !ok {
		t.Fatalf("outbound element is %T, want *CategoryElement", rs.Rules[0].Outbound[0])
	}
	if cat.Category != "AppType" || cat.Value != "Monitoring" {
		t.Errorf("category = %s:%s", cat.Category, cat.Value)
	}

	in, out := rs.Count()
	if in != 1 || out != 1 {
		t.Errorf("Count = %d/%d, want 1/1", in, out)
	}
}

func TestLoadFormatErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"not json", `{"rules": [`},
		{"missing rules", `{}`},
		{"missing outbound", `{"rules": [{"name": "x", "inbound_rules": []}]}`},
		{"missing type", `{"rules": [{"inbound_rules": [{"service_list": [{"uuid": "` + svcDNS + `"}]}], "outbound_rules": []}]}`},
		{"unknown type", `{"rules": [{"inbound_rules": [{"type": "ip", "service_list": [{"uuid": "` + svcDNS + `"}]}], "outbound_rules": []}]}`},
		{"empty services", `{"rules": [{"inbound_rules": [{"type": "category", "lookup_category": "A", "lookup_value": "B", "service_list": []}], "outbound_rules": []}]}`},
		{"address without addresses", `{"rules": [{"inbound_rules": [{"type": "address", "service_list": [{"uuid": "` + svcDNS + `"}]}], "outbound_rules": []}]}`},
		{"category without value", `{"rules": [{"inbound_rules": [{"type": "category", "lookup_category": "A", "service_list": [{"uuid": "` + svcDNS + `"}]}], "outbound_rules": []}]}`},
		{"bad uuid", `{"rules": [{"inbound_rules": [{"type": "category", "lookup_category": "A", "lookup_value": "B", "service_list": [{"uuid": "s1"}]}], "outbound_rules": []}]}`},
	}
	for _, tc := range testCases {
		_, err := Load([]byte(tc.doc))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%s: error = %v, want *FormatError", tc.name, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BaseRules.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClone(t *testing.T) {
	rs, err := Load([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cp := rs.Clone()

	cp.Rules[0].Inbound[0].SetServices(nil)
	cp.Rules[0].Outbound = nil
	cp.Rules[0].Inbound[0].(*AddressElement).Addresses[0].UUID = "changed"

	orig := rs.Rules[0].Inbound[0].(*AddressElement)
	if len(orig.Services) != 2 {
		t.Errorf("clone aliased services: %v", orig.Services)
	}
	if orig.Addresses[0].UUID != addrDNS {
		t.Errorf("clone aliased addresses: %v", orig.Addresses)
	}
	if len(rs.Rules[0].Outbound) != 1 {
		t.Errorf("clone aliased outbound slice")
	}
}
