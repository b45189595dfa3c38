package schema

import (
	"strings"
	"testing"
)

func TestParseTemplate(t *testing.T) {
	s, err := Parse(Template("billing-api"))
	if err != nil {
		t.Fatalf("Parse(Template()) error = %v", err)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	if s.Service != "billing-api" {
		t.Errorf("Service = %q", s.Service)
	}
	if len(s.Base) != 3 {
		t.Errorf("len(Base) = %d, want 3", len(s.Base))
	}
	if got := s.EnvironmentNames(); len(got) != 3 || got[0] != "development" {
		t.Errorf("EnvironmentNames() = %v", got)
	}
}

func TestParseRejectsBadType(t *testing.T) {
	data := []byte("version: 1\nbase:\n  KEY:\n    type: integer\n")
	_, err := Parse(data)
	if err == nil {
		t.Fatal("Parse() expected error for bad entry type")
	}
	if !strings.Contains(err.Error(), "invalid schema file") {
		t.Errorf("error = %v, want schema violation", err)
	}
}

func TestParseRejectsMissingVersion(t *testing.T) {
	_, err := Parse([]byte("service: x\n"))
	if err == nil {
		t.Fatal("Parse() expected error for missing version")
	}
}

func TestParseRejectsUnknownTopLevelKey(t *testing.T) {
	_, err := Parse([]byte("version: 1\nsecrets:\n  A: {}\n"))
	if err == nil {
		t.Fatal("Parse() expected error for unknown top-level key")
	}
}

func TestResolveInheritance(t *testing.T) {
	data := []byte(`version: 1
base:
  DATABASE_URL:
    type: connection_string
    required: true
  LOG_LEVEL:
    type: string
environments:
  development:
    inherit: base
  production:
    inherit: base
    SENTRY_DSN:
      type: url
      required: true
    LOG_LEVEL:
      type: string
      required: true
`)
	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	dev, err := s.Resolve("development")
	if err != nil {
		t.Fatalf("Resolve(development) error = %v", err)
	}
	if len(dev) != 2 {
		t.Errorf("len(dev) = %d, want 2", len(dev))
	}

	prod, err := s.Resolve("production")
	if err != nil {
		t.Fatalf("Resolve(production) error = %v", err)
	}
	if len(prod) != 3 {
		t.Errorf("len(prod) = %d, want 3", len(prod))
	}
	// Local entry overrides the inherited one.
	if !prod["LOG_LEVEL"].Required {
		t.Error("LOG_LEVEL override lost: Required = false")
	}
	if !prod["SENTRY_DSN"].Required || prod["SENTRY_DSN"].Type != "url" {
		t.Errorf("SENTRY_DSN = %+v", prod["SENTRY_DSN"])
	}
}

func TestResolveUnknownEnvironment(t *testing.T) {
	s, err := Parse(Template(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := s.Resolve("qa"); err == nil {
		t.Fatal("Resolve(qa) expected error")
	}
}

func TestResolveInheritanceCycle(t *testing.T) {
	data := []byte(`version: 1
environments:
  a:
    inherit: b
  b:
    inherit: a
`)
	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := s.Resolve("a"); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Resolve(a) = %v, want cycle error", err)
	}
}
