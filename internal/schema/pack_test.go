package schema

import (
	"testing"
)

const cyberPack = `
domain: cybersecurity
schemas:
  material:
    required: [name]
    properties:
      vendor: { type: string }
      cve: { type: string }
relationships:
  deployed_on:
    description: A tool is deployed on a host
    domains: [cybersecurity]
  beacons_to:
    description: A host communicates with a C2 server
    domains: [cybersecurity]
`

func TestParseDomainPack(t *testing.T) {
	pack, err := ParseDomainPack([]byte(cyberPack))
	if err != nil {
		t.Fatalf("ParseDomainPack: %v", err)
	}
	if pack.Domain != "cybersecurity" {
		t.Errorf("domain = %q", pack.Domain)
	}
	if len(pack.Schemas) != 1 || len(pack.Relationships) != 2 {
		t.Errorf("pack = %+v", pack)
	}
}

func TestParseDomainPackRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing domain":            `schemas: {material: {required: [name]}}`,
		"empty schema":              "domain: x\nschemas:\n  material: {}\n",
		"relationship without desc": "domain: x\nrelationships:\n  deployed_on: {}\n",
		"not yaml":                  `{{{{`,
	}
	for name, content := range cases {
		if _, err := ParseDomainPack([]byte(content)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestDomainPackApply(t *testing.T) {
	pack, err := ParseDomainPack([]byte(cyberPack))
	if err != nil {
		t.Fatal(err)
	}

	lib := DefaultLibrary()
	rels := pack.Apply(lib)

	s, ok := lib.Schema("material")
	if !ok {
		t.Fatal("material schema missing after overlay")
	}
	if _, ok := s.Properties["cve"]; !ok {
		t.Errorf("overlay not applied: %+v", s.Properties)
	}
	// The overlay replaces the built-in material schema wholesale.
	if _, ok := s.Properties["quantity"]; ok {
		t.Error("overlay should replace, not merge")
	}

	if _, ok := rels["beacons_to"]; !ok {
		t.Errorf("relationships = %+v", rels)
	}
}
