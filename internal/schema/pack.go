package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mgraessle/grist/pkg/types"
)

// DomainPack is the on-disk format for a domain vertical: entity schema
// overlays and relationship type definitions, expressed as data so a new
// vertical needs no code change.
//
// Example:
//
//	domain: cybersecurity
//	schemas:
//	  material:
//	    required: [name]
//	    properties:
//	      vendor: { type: string }
//	relationships:
//	  deployed_on:
//	    description: A tool is deployed on a host
//	    domains: [cybersecurity]
type DomainPack struct {
	Domain        string                               `yaml:"domain"`
	Schemas       map[string]TypeSchema                `yaml:"schemas,omitempty"`
	Relationships map[string]types.RelationshipTypeDef `yaml:"relationships,omitempty"`
}

// LoadDomainPack reads and validates a domain pack file.
func LoadDomainPack(path string) (*DomainPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to read domain pack: %w", err)
	}
	return ParseDomainPack(data)
}

// ParseDomainPack decodes a domain pack from YAML bytes.
func ParseDomainPack(data []byte) (*DomainPack, error) {
	var pack DomainPack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("schema: invalid domain pack YAML: %w", err)
	}
	if pack.Domain == "" {
		return nil, fmt.Errorf("schema: domain pack is missing the domain name")
	}
	for name, s := range pack.Schemas {
		if len(s.Required) == 0 && len(s.Properties) == 0 {
			return nil, fmt.Errorf("schema: domain pack schema %q is empty", name)
		}
	}
	for name, def := range pack.Relationships {
		if def.Description == "" {
			return nil, fmt.Errorf("schema: domain pack relationship %q has no description", name)
		}
	}
	return &pack, nil
}

// Apply overlays the pack's schemas onto the library. Relationship
// definitions are returned for the caller to feed into the relationship
// registry; the library only owns entity schemas.
func (p *DomainPack) Apply(lib *Library) map[string]types.RelationshipTypeDef {
	for name, s := range p.Schemas {
		lib.Register(name, s)
	}
	return p.Relationships
}
