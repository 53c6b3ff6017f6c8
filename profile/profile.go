// Package profile loads on-disk input profiles (YAML or TOML) into the
// translator package's runtime CapabilityMap and ProfileTable, per spec.md
// §6's profile/capability-string contract.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/translator"
	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a profile: a declarative capability map
// (chord/delayed-chord/multi-source, consumed per source) plus a profile
// remap table (consumed per composite).
type Document struct {
	Name     string       `yaml:"name" toml:"name"`
	Mappings []MappingDoc `yaml:"mappings,omitempty" toml:"mappings,omitempty"`
	Rules    []RuleDoc    `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

type MappingDoc struct {
	Kind    string      `yaml:"kind" toml:"kind"` // "chord" | "delayed_chord" | "multi_source"
	Members []string    `yaml:"members" toml:"members"`
	Target  string      `yaml:"target" toml:"target"`
	DelayMS int64       `yaml:"delay_ms,omitempty" toml:"delay_ms,omitempty"`
	FanOuts []FanOutDoc `yaml:"fan_outs,omitempty" toml:"fan_outs,omitempty"`
}

type FanOutDoc struct {
	Target string `yaml:"target" toml:"target"`
	Sign   int    `yaml:"sign" toml:"sign"` // -1, 0, +1
}

type RuleDoc struct {
	Source    string  `yaml:"source" toml:"source"`
	Target    string  `yaml:"target" toml:"target"`
	Direction string  `yaml:"direction,omitempty" toml:"direction,omitempty"` // "X+", "X-", "Y+", "Y-"
	Deadzone  float64 `yaml:"deadzone,omitempty" toml:"deadzone,omitempty"`
}

// Load reads a profile document from path, choosing YAML or TOML by
// extension, and builds the runtime CapabilityMap and ProfileTable it
// describes.
func Load(path string) (*translator.CapabilityMap, *translator.ProfileTable, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("profile: read %s: %w", path, err)
	}

	var doc Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, "", fmt.Errorf("profile: parse yaml %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, nil, "", fmt.Errorf("profile: parse toml %s: %w", path, err)
		}
	default:
		return nil, nil, "", fmt.Errorf("profile: unsupported extension %q", ext)
	}

	cm, err := buildCapabilityMap(doc.Mappings)
	if err != nil {
		return nil, nil, "", fmt.Errorf("profile: %s: %w", path, err)
	}
	pt, err := buildProfileTable(doc.Rules)
	if err != nil {
		return nil, nil, "", fmt.Errorf("profile: %s: %w", path, err)
	}
	return cm, pt, doc.Name, nil
}

func buildCapabilityMap(docs []MappingDoc) (*translator.CapabilityMap, error) {
	mappings := make([]translator.Mapping, 0, len(docs))
	for i, d := range docs {
		m, err := toMapping(d)
		if err != nil {
			return nil, fmt.Errorf("mapping[%d]: %w", i, err)
		}
		mappings = append(mappings, m)
	}
	return translator.NewCapabilityMap(mappings), nil
}

func toMapping(d MappingDoc) (translator.Mapping, error) {
	members, err := parseAll(d.Members)
	if err != nil {
		return translator.Mapping{}, err
	}
	target, err := native.ParseCapability(d.Target)
	if err != nil && d.Target != "" {
		return translator.Mapping{}, err
	}

	switch d.Kind {
	case "chord":
		return translator.Mapping{Kind: translator.MappingChord, Members: members, Target: target}, nil
	case "delayed_chord":
		return translator.Mapping{Kind: translator.MappingDelayedChord, Members: members, Target: target, DelayDuration: d.DelayMS}, nil
	case "multi_source":
		fanOuts := make([]translator.FanOut, 0, len(d.FanOuts))
		for _, fo := range d.FanOuts {
			t, err := native.ParseCapability(fo.Target)
			if err != nil {
				return translator.Mapping{}, err
			}
			fanOuts = append(fanOuts, translator.FanOut{Target: t, RequireSign: fo.Sign})
		}
		return translator.Mapping{Kind: translator.MappingMultiSource, Members: members, FanOuts: fanOuts}, nil
	default:
		return translator.Mapping{}, fmt.Errorf("unknown mapping kind %q", d.Kind)
	}
}

func buildProfileTable(docs []RuleDoc) (*translator.ProfileTable, error) {
	rules := make([]translator.ProfileRule, 0, len(docs))
	for i, d := range docs {
		r, err := toRule(d)
		if err != nil {
			return nil, fmt.Errorf("rule[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return translator.NewProfileTable(rules), nil
}

func toRule(d RuleDoc) (translator.ProfileRule, error) {
	src, err := native.ParseCapability(d.Source)
	if err != nil {
		return translator.ProfileRule{}, err
	}
	dst, err := native.ParseCapability(d.Target)
	if err != nil {
		return translator.ProfileRule{}, err
	}
	dir, err := parseDirection(d.Direction)
	if err != nil {
		return translator.ProfileRule{}, err
	}
	return translator.ProfileRule{Source: src, Target: dst, Direction: dir, Deadzone: d.Deadzone}, nil
}

func parseDirection(s string) (translator.Direction, error) {
	if s == "" {
		return translator.Direction{}, nil
	}
	if len(s) != 2 {
		return translator.Direction{}, fmt.Errorf("malformed direction %q", s)
	}
	component := s[0]
	if component != 'X' && component != 'Y' {
		return translator.Direction{}, fmt.Errorf("unknown direction component %q", s)
	}
	sign := 1
	switch s[1] {
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return translator.Direction{}, fmt.Errorf("unknown direction sign %q", s)
	}
	return translator.Direction{Component: component, Sign: sign}, nil
}

func parseAll(ss []string) ([]native.Capability, error) {
	out := make([]native.Capability, 0, len(ss))
	for _, s := range ss {
		c, err := native.ParseCapability(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
