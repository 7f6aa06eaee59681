package scenario

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
)

// Catalog holds scenarios by ID in registration order. Lookups return deep
// copies.
type Catalog struct {
	order []string
	byID  map[string]Scenario
}

func NewCatalog(scenarios ...Scenario) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Scenario)}
	for _, sc := range scenarios {
		if err := c.Add(sc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add validates sc and registers it. IDs must be unique.
func (c *Catalog) Add(sc Scenario) error {
	if err := Validate(sc); err != nil {
		return err
	}
	if _, exists := c.byID[sc.ID]; exists {
		return fmt.Errorf("duplicate scenario id %q", sc.ID)
	}
	c.byID[sc.ID] = sc.Clone()
	c.order = append(c.order, sc.ID)
	return nil
}

func (c *Catalog) Get(id string) (Scenario, bool) {
	sc, ok := c.byID[id]
	if !ok {
		return Scenario{}, false
	}
	return sc.Clone(), true
}

func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

func (c *Catalog) All() []Scenario {
	out := make([]Scenario, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// Select resolves scenario IDs and "tag:<name>" selectors in the given
// order, dropping duplicates. No selectors selects everything.
func (c *Catalog) Select(selectors ...string) ([]Scenario, error) {
	if len(selectors) == 0 {
		return c.All(), nil
	}
	seen := make(map[string]bool)
	var out []Scenario
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, c.byID[id].Clone())
		}
	}
	var unknown []string
	for _, sel := range selectors {
		if tag, ok := strings.CutPrefix(sel, "tag:"); ok {
			matched := false
			for _, id := range c.order {
				if c.byID[id].HasTag(tag) {
					add(id)
					matched = true
				}
			}
			if !matched {
				unknown = append(unknown, sel)
			}
			continue
		}
		if _, ok := c.byID[sel]; !ok {
			unknown = append(unknown, sel)
			continue
		}
		add(sel)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

const fixture = "{{fixtures}}/"

// BuiltIn returns the catalog of SABL admin and public-site checks.
func BuiltIn() *Catalog {
	c, err := NewCatalog(builtIn()...)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

func builtIn() []Scenario {
	navWait := Step{
		Action:  ActionExpectVisible,
		Target:  target(locator.CSS("nav")),
		Timeout: 10 * time.Second,
	}
	cardWait := Step{
		Action:  ActionExpectVisible,
		Target:  target(locator.CSS(".activity-card").FirstMatch()),
		Timeout: 15 * time.Second,
	}

	return []Scenario{
		{
			ID:            "login",
			Description:   "Sign into the admin panel with the configured credentials",
			Tags:          []string{"admin", "smoke"},
			Steps:         Login(),
			FinalArtifact: true,
		},
		{
			ID:          "admin-page",
			Description: "The admin route renders the winner form",
			Tags:        []string{"admin", "smoke"},
			Steps: []Step{
				Navigate("{{admin.path}}", browser.LoadStateLoad),
				ExpectText("Add New Winner"),
			},
			FinalArtifact: true,
		},
		{
			ID:          "admin-photo-field",
			Description: "The winner photo upload field is reachable and rendered",
			Tags:        []string{"admin"},
			Steps: Flatten(
				Login(),
				[]Step{
					ExpectVisible(locator.Role("tab", "Manage Winners")),
					Scroll(locator.Label("Photo")),
					ExpectVisible(locator.Label("Photo")),
					Screenshot("photo field"),
				},
			),
		},
		{
			ID:          "winners-crud",
			Description: "Create, edit and delete a winner",
			Tags:        []string{"admin", "crud"},
			Steps: Flatten(
				Login(),
				OpenTab("Manage Winners"),
				SubmitWinnerForm(Winner{
					Name:       "Test Winner",
					RollNumber: "12345",
					Event:      "Test Event",
					Date:       "2025-01-01",
					Year:       "2025",
					Photo:      fixture + "test_image.png",
					ThisWeek:   true,
				}),
				[]Step{ExpectText("Test Winner")},
				EditFirst(locator.Label("Name"), "Updated Winner", "Update Winner"),
				[]Step{ExpectText("Updated Winner")},
				DeleteFirst(),
				[]Step{ExpectHidden(locator.Text("Updated Winner"))},
			),
			FinalArtifact: true,
		},
		{
			ID:          "activities-crud",
			Description: "Create, edit and delete an activity with poster and photos",
			Tags:        []string{"admin", "crud"},
			Steps: Flatten(
				Login(),
				OpenTab("Manage Activities"),
				SubmitActivityForm(Activity{
					Name:        "Test Activity",
					Date:        "2025-01-01",
					Description: "Test Description",
					Details:     "Test Details",
					Poster:      fixture + "test_image.png",
					Photos:      []string{fixture + "test_image.png", fixture + "placeholder.svg"},
				}),
				[]Step{ExpectText("Test Activity")},
				EditFirst(locator.Label("Name"), "Updated Activity", "Update Activity"),
				[]Step{ExpectText("Updated Activity")},
				DeleteFirst(),
				[]Step{ExpectHidden(locator.Text("Updated Activity"))},
			),
			FinalArtifact: true,
		},
		{
			ID:          "gallery-crud",
			Description: "Upload, re-caption and delete a gallery image",
			Tags:        []string{"admin", "crud"},
			Steps: Flatten(
				Login(),
				OpenTab("Manage Gallery"),
				SubmitGalleryForm(fixture+"test_image.png", "Test Caption"),
				[]Step{ExpectText("Test Caption")},
				EditFirst(locator.Label("Caption"), "Updated Caption", "Update Image"),
				[]Step{ExpectText("Updated Caption")},
				DeleteFirst(),
				[]Step{ExpectHidden(locator.Text("Updated Caption"))},
			),
			FinalArtifact: true,
		},
		{
			ID:          "public-pages",
			Description: "Every public page renders its heading",
			Tags:        []string{"public", "smoke"},
			Steps: pageChecks(
				"/", "Explore Activities",
				"/about", "About SABL",
				"/upcoming", "Upcoming Activities",
				"/previous", "Previous Activities",
				"/winners", "Hall of Fame",
			),
		},
		{
			ID:          "activity-listings",
			Description: "Upcoming and previous activity listings render",
			Tags:        []string{"public"},
			Steps: pageChecks(
				"/upcoming-activities", "Upcoming Activities",
				"/previous-activities", "Previous Activities",
			),
		},
		{
			ID:          "home-navigation",
			Description: "Navbar renders and leads to the upcoming activity cards",
			Tags:        []string{"public"},
			Steps: []Step{
				Navigate("/", browser.LoadStateNetworkIdle),
				navWait,
				Screenshot("home"),
				Click(locator.Role("link", "Upcoming")),
				cardWait,
			},
			FinalArtifact: true,
		},
	}
}

// pageChecks visits each path, waits for its heading and screenshots it.
// Arguments alternate path and expected text.
func pageChecks(pairs ...string) []Step {
	var steps []Step
	for i := 0; i+1 < len(pairs); i += 2 {
		steps = append(steps,
			Navigate(pairs[i], browser.LoadStateLoad),
			ExpectText(pairs[i+1]),
			Screenshot(pairs[i]),
		)
	}
	return steps
}
