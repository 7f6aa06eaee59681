package locator

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy selects how a Descriptor is matched against the page.
type Strategy string

const (
	ByRole  Strategy = "role"
	ByLabel Strategy = "label"
	ByText  Strategy = "text"
	ByCSS   Strategy = "css"
)

// Descriptor describes how to find an element, independent of how a driver
// resolves it. For ByRole, Value holds the ARIA role and Name the accessible
// name qualifier. Matching is case-insensitive substring unless Exact is set.
type Descriptor struct {
	By    Strategy `yaml:"by" json:"by"`
	Value string   `yaml:"value" json:"value"`
	Name  string   `yaml:"name,omitempty" json:"name,omitempty"`
	Exact bool     `yaml:"exact,omitempty" json:"exact,omitempty"`
	// First picks the first match instead of requiring a unique one.
	First bool `yaml:"first,omitempty" json:"first,omitempty"`
}

func Role(role, name string) Descriptor {
	return Descriptor{By: ByRole, Value: role, Name: name}
}

func Label(label string) Descriptor {
	return Descriptor{By: ByLabel, Value: label}
}

func Text(text string) Descriptor {
	return Descriptor{By: ByText, Value: text}
}

func CSS(selector string) Descriptor {
	return Descriptor{By: ByCSS, Value: selector}
}

// FirstMatch returns a copy of d that tolerates several matches.
func (d Descriptor) FirstMatch() Descriptor {
	d.First = true
	return d
}

// ExactMatch returns a copy of d that requires a case-sensitive full match.
func (d Descriptor) ExactMatch() Descriptor {
	d.Exact = true
	return d
}

func (d Descriptor) Validate() error {
	switch d.By {
	case ByRole, ByLabel, ByText, ByCSS:
	case "":
		return fmt.Errorf("locator strategy is required")
	default:
		return fmt.Errorf("unknown locator strategy %q", d.By)
	}
	if strings.TrimSpace(d.Value) == "" {
		return fmt.Errorf("%s locator requires a value", d.By)
	}
	if d.By != ByRole && d.Name != "" {
		return fmt.Errorf("name qualifier is only valid for role locators")
	}
	return nil
}

// String renders d in the short form accepted by Parse.
func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString(string(d.By))
	b.WriteByte('=')
	b.WriteString(d.Value)
	if d.By == ByRole && d.Name != "" {
		b.WriteString("[name=")
		b.WriteString(strconv.Quote(d.Name))
		b.WriteByte(']')
	}
	if d.Exact {
		b.WriteString(" exact")
	}
	if d.First {
		b.WriteString(" >> first")
	}
	return b.String()
}

// Parse reads the short form used in scenario files and CLI flags:
//
//	role=button[name="Add Winner"]
//	label=Roll Number
//	text=Hall of Fame exact
//	css=.activity-card >> first
func Parse(s string) (Descriptor, error) {
	var d Descriptor
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, ">> first"); ok {
		d.First = true
		s = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(s, " exact"); ok {
		d.Exact = true
		s = strings.TrimSpace(rest)
	}

	by, value, ok := strings.Cut(s, "=")
	if !ok {
		return Descriptor{}, fmt.Errorf("locator %q: missing strategy prefix", s)
	}
	d.By = Strategy(strings.TrimSpace(by))
	d.Value = strings.TrimSpace(value)

	switch d.By {
	case ByLabel, ByText:
		if strings.Contains(d.Value, "[name=") {
			return Descriptor{}, fmt.Errorf("locator %q: name qualifier is only valid for role locators", s)
		}
	case ByRole:
		if i := strings.Index(d.Value, "[name="); i >= 0 && strings.HasSuffix(d.Value, "]") {
			raw := d.Value[i+len("[name=") : len(d.Value)-1]
			name, err := strconv.Unquote(raw)
			if err != nil {
				name = strings.Trim(raw, `"'`)
			}
			d.Name = name
			d.Value = strings.TrimSpace(d.Value[:i])
		}
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("locator %q: %w", s, err)
	}
	return d, nil
}

// UnmarshalYAML accepts either the short string form or a mapping.
func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := Parse(node.Value)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	type plain Descriptor
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Descriptor(p)
	return d.Validate()
}
