package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"gopkg.in/yaml.v3"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks that sc can be executed: a well-formed ID, at least one
// step, known actions and the fields each action needs.
func Validate(sc Scenario) error {
	if !idPattern.MatchString(sc.ID) {
		return fmt.Errorf("scenario id %q must be alphanumeric with . _ or -", sc.ID)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s: steps list is required and must be non-empty", sc.ID)
	}
	for i, st := range sc.Steps {
		if err := ValidateStep(st); err != nil {
			return fmt.Errorf("scenario %s step %d: %w", sc.ID, i, err)
		}
	}
	return nil
}

func ValidateStep(st Step) error {
	if !knownActions[st.Action] {
		return fmt.Errorf("unknown action %q", st.Action)
	}
	if st.Target != nil {
		if err := st.Target.Validate(); err != nil {
			return err
		}
	}
	if st.Timeout < 0 || st.Wait.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	switch st.Action {
	case ActionNavigate:
		if st.Value == "" {
			return fmt.Errorf("navigate requires a value")
		}
		if _, err := browser.ParseLoadState(string(st.Wait.Until)); err != nil {
			return err
		}
	case ActionFill, ActionClick, ActionCheck, ActionScroll, ActionExpectVisible, ActionExpectHidden:
		if st.Target == nil {
			return fmt.Errorf("%s requires a target", st.Action)
		}
	case ActionUpload:
		if st.Target == nil {
			return fmt.Errorf("upload requires a target")
		}
		if len(st.Files) == 0 {
			return fmt.Errorf("upload requires at least one file")
		}
	case ActionExpectText:
		if st.Value == "" {
			return fmt.Errorf("expect_text requires a value")
		}
	}
	return nil
}

// Decode reads every YAML document in r as a scenario. Unknown fields are
// rejected to catch typos.
func Decode(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []Scenario
	for {
		var sc Scenario
		err := dec.Decode(&sc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if err := Validate(sc); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		out = append(out, sc)
	}
	return out, nil
}

// LoadFile reads and validates the scenarios in one YAML file.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenarios, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, in lexical order. A
// missing directory yields no scenarios.
func LoadDir(dir string) ([]Scenario, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []Scenario
	for _, name := range names {
		scenarios, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, scenarios...)
	}
	return out, nil
}

// LoadCatalog returns the built-in scenarios plus those found in dir.
func LoadCatalog(dir string) (*Catalog, error) {
	c := BuiltIn()
	extra, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, sc := range extra {
		if err := c.Add(sc); err != nil {
			return nil, err
		}
	}
	return c, nil
}
