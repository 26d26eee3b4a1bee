package config

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

const YAML_HEADER = "---\n"

const PRISM_CONFIG = `
prism:
  host: %s
  user: %s
  insecure: true
`
const RECONCILE_CONFIG = `
reconcile:
  pageSize: %d
  pollInterval: %s
`

func buildConfig(parts ...string) *bytes.Buffer {
	var builder strings.Builder
	builder.WriteString(YAML_HEADER)
	for _, p := range parts {
		builder.WriteString(p)
	}
	return bytes.NewBufferString(builder.String())
}

func TestNew(t *testing.T) {
	testCases := []struct {
		pageSize     int
		pollInterval string
		wantInterval time.Duration
	}{
		{500, "5s", 5 * time.Second},
		{100, "1m", time.Minute},
	}
	for _, tc := range testCases {
		input := buildConfig(
			fmt.Sprintf(PRISM_CONFIG, "pc.example.local", "admin"),
			fmt.Sprintf(RECONCILE_CONFIG, tc.pageSize, tc.pollInterval),
		)

		testConfig, err := New(input)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		expectedPrism := PrismConfig{
			Host:     "pc.example.local",
			Port:     DEFAULT_PORT,
			User:     "admin",
			Insecure: true,
			Timeout:  DEFAULT_TIMEOUT,
		}
		if testConfig.Prism != expectedPrism {
			t.Errorf("Prism %v does not match expected prism %v", testConfig.Prism, expectedPrism)
		}
		if testConfig.Reconcile.PageSize != tc.pageSize {
			t.Errorf("pageSize = %d, want %d", testConfig.Reconcile.PageSize, tc.pageSize)
		}
		if testConfig.Reconcile.PollInterval != tc.wantInterval {
			t.Errorf("pollInterval = %v, want %v", testConfig.Reconcile.PollInterval, tc.wantInterval)
		}
		if testConfig.Reconcile.PollAttempts != DEFAULT_POLL_ATTEMPTS {
			t.Errorf("pollAttempts = %d, want default %d", testConfig.Reconcile.PollAttempts, DEFAULT_POLL_ATTEMPTS)
		}
		if testConfig.Catalog != DEFAULT_CATALOG {
			t.Errorf("catalog = %q, want %q", testConfig.Catalog, DEFAULT_CATALOG)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"missing host", fmt.Sprintf(PRISM_CONFIG, `""`, "admin")},
		{"missing user", fmt.Sprintf(PRISM_CONFIG, "pc", `""`)},
		{"page too large", fmt.Sprintf(PRISM_CONFIG, "pc", "admin") + fmt.Sprintf(RECONCILE_CONFIG, 501, "5s")},
		{"unknown key", fmt.Sprintf(PRISM_CONFIG, "pc", "admin") + "bogus: 1\n"},
		{"bad level", fmt.Sprintf(PRISM_CONFIG, "pc", "admin") + "log:\n  level: chatty\n"},
	}
	for _, tc := range testCases {
		if _, err := New(buildConfig(tc.input)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBaseURL(t *testing.T) {
	p := PrismConfig{Host: "10.0.0.5", Port: 9440}
	if got, want := p.BaseURL(), "https://10.0.0.5:9440/api/nutanix/v3"; got != want {
		t.Errorf("BaseURL = %s, want %s", got, want)
	}
}

func TestParseSkipsValidation(t *testing.T) {
	c, err := Parse(buildConfig("prism:\n  user: admin\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Prism.Host != "" || c.Prism.Port != DEFAULT_PORT {
		t.Errorf("Prism = %v, want empty host and default port", c.Prism)
	}
	if err := c.Validate(); err == nil {
		t.Error("Validate should reject a config without host")
	}

	if _, err := Parse(buildConfig("bogus: 1\n")); err == nil {
		t.Error("unknown keys should still fail to parse")
	}
}
