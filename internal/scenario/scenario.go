package scenario

import (
	"strconv"
	"strings"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
)

// Action type constants
type ActionType string

const (
	ActionNavigate      ActionType = "navigate"
	ActionFill          ActionType = "fill"
	ActionClick         ActionType = "click"
	ActionUpload        ActionType = "upload"
	ActionCheck         ActionType = "check"
	ActionScroll        ActionType = "scroll"
	ActionExpectVisible ActionType = "expect_visible"
	ActionExpectHidden  ActionType = "expect_hidden"
	ActionExpectText    ActionType = "expect_text"
	ActionScreenshot    ActionType = "screenshot"
)

var knownActions = map[ActionType]bool{
	ActionNavigate:      true,
	ActionFill:          true,
	ActionClick:         true,
	ActionUpload:        true,
	ActionCheck:         true,
	ActionScroll:        true,
	ActionExpectVisible: true,
	ActionExpectHidden:  true,
	ActionExpectText:    true,
	ActionScreenshot:    true,
}

// Required returns the capability an interaction step needs from its target.
func (a ActionType) Required() locator.Capability {
	switch a {
	case ActionFill:
		return locator.Fillable
	case ActionClick:
		return locator.Clickable
	case ActionCheck:
		return locator.Checkable
	case ActionUpload:
		return locator.Uploadable
	}
	return locator.None
}

// IsAssertion reports whether the step is evaluated by the assertion engine.
func (a ActionType) IsAssertion() bool {
	return a == ActionExpectVisible || a == ActionExpectHidden || a == ActionExpectText
}

// Wait is the readiness policy of a navigate step.
type Wait struct {
	Until   browser.LoadState `yaml:"until,omitempty" json:"until,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Step is one user-observable action.
type Step struct {
	Action ActionType          `yaml:"action" json:"action"`
	Target *locator.Descriptor `yaml:"target,omitempty" json:"target,omitempty"`
	// Value is the URL for navigate, the input for fill and the expected text
	// for expect_text.
	Value string   `yaml:"value,omitempty" json:"value,omitempty"`
	Files []string `yaml:"files,omitempty" json:"files,omitempty"`
	Wait  Wait     `yaml:"wait,omitempty" json:"wait,omitempty"`
	// Timeout overrides the locate or assertion timeout for this step.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Soft assertions record a warning instead of failing the scenario.
	Soft bool   `yaml:"soft,omitempty" json:"soft,omitempty"`
	Note string `yaml:"note,omitempty" json:"note,omitempty"`
}

// String renders the step on one line, e.g. `fill label=Email "x@y"`.
func (s Step) String() string {
	parts := []string{string(s.Action)}
	if s.Target != nil {
		parts = append(parts, s.Target.String())
	}
	switch {
	case s.Action == ActionNavigate:
		parts = append(parts, s.Value)
		if s.Wait.Until != "" {
			parts = append(parts, "until "+string(s.Wait.Until))
		}
	case s.Action == ActionUpload:
		parts = append(parts, strings.Join(s.Files, ", "))
	case s.Value != "":
		parts = append(parts, strconv.Quote(s.Value))
	case s.Note != "":
		parts = append(parts, s.Note)
	}
	if s.Soft {
		parts = append(parts, "(soft)")
	}
	return strings.Join(parts, " ")
}

func (s Step) clone() Step {
	if s.Target != nil {
		t := *s.Target
		s.Target = &t
	}
	s.Files = append([]string(nil), s.Files...)
	return s
}

// Scenario is a named, ordered list of steps.
type Scenario struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// BaseURL overrides the configured target for this scenario only.
	BaseURL string   `yaml:"baseURL,omitempty" json:"base_url,omitempty"`
	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Steps   []Step   `yaml:"steps" json:"steps"`
	// FinalArtifact requests a screenshot when the scenario passes.
	FinalArtifact bool `yaml:"finalArtifact,omitempty" json:"final_artifact,omitempty"`
}

// Clone returns a deep copy, so callers can never alter a catalog entry.
func (sc Scenario) Clone() Scenario {
	sc.Tags = append([]string(nil), sc.Tags...)
	steps := make([]Step, len(sc.Steps))
	for i, st := range sc.Steps {
		steps[i] = st.clone()
	}
	sc.Steps = steps
	return sc
}

func (sc Scenario) HasTag(tag string) bool {
	for _, t := range sc.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
