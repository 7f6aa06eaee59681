package locator

import (
	"context"
	"strings"
)

// Capability is the set of interactions an element currently supports.
type Capability uint8

const (
	Visible Capability = 1 << iota
	Clickable
	Fillable
	Checkable
	Uploadable
)

// None is the empty capability set; steps requiring None only need a match.
const None Capability = 0

func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	if c == None {
		return "none"
	}
	var parts []string
	names := []struct {
		c    Capability
		name string
	}{
		{Visible, "visible"},
		{Clickable, "clickable"},
		{Fillable, "fillable"},
		{Checkable, "checkable"},
		{Uploadable, "uploadable"},
	}
	for _, n := range names {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Element is a live handle on one match of a Descriptor. Implementations
// re-query the page on every call, so a handle never refers to a detached node.
type Element interface {
	Capabilities(ctx context.Context) (Capability, error)
	Text(ctx context.Context) (string, error)
	Fill(ctx context.Context, value string) error
	Click(ctx context.Context) error
	Check(ctx context.Context) error
	SetFiles(ctx context.Context, paths []string) error
	ScrollIntoView(ctx context.Context) error
}

// Querier lists every element currently matching a descriptor, without waiting.
type Querier interface {
	Query(ctx context.Context, d Descriptor) ([]Element, error)
}
