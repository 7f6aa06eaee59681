package internal

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser/mocks"
	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/copyleftdev/sablcheck/internal/report"
	"github.com/copyleftdev/sablcheck/internal/runner"
	"github.com/copyleftdev/sablcheck/internal/runs"
	"github.com/copyleftdev/sablcheck/internal/scenario"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publicSite serves every public route of the SABL site. The Upcoming link
// swaps in the activity cards as the client-side router would.
func publicSite() *mocks.MockSession {
	s := mocks.NewMockSession()
	heading := func(text string) []*mocks.MockElement {
		return []*mocks.MockElement{
			{CSS: "nav", Caps: locator.Visible},
			{Text: text, Caps: locator.Visible},
		}
	}
	upcoming := &mocks.MockElement{Role: "link", Name: "Upcoming", Caps: locator.Visible | locator.Clickable,
		OnClick: func(s *mocks.MockSession) {
			s.Replace(
				&mocks.MockElement{CSS: ".activity-card", Text: "Chess Night", Caps: locator.Visible},
				&mocks.MockElement{CSS: ".activity-card", Text: "Debate Club", Caps: locator.Visible},
			)
		}}
	s.Pages["/"] = append(heading("Explore Activities"), upcoming)
	s.Pages["/about"] = heading("About SABL")
	s.Pages["/upcoming"] = heading("Upcoming Activities")
	s.Pages["/previous"] = heading("Previous Activities")
	s.Pages["/winners"] = heading("Hall of Fame")
	s.Pages["/upcoming-activities"] = heading("Upcoming Activities")
	s.Pages["/previous-activities"] = heading("Previous Activities")
	return s
}

// TestPublicSiteWorkflow drives built-in scenarios from submission through
// the run manager to the printed summary.
func TestPublicSiteWorkflow(t *testing.T) {
	cfg := config.Default()
	cfg.Target.BaseURL = "http://sabl.test"
	cfg.Timeouts.Locate = 100 * time.Millisecond
	cfg.Timeouts.Assertion = 100 * time.Millisecond
	cfg.Timeouts.PollInterval = 5 * time.Millisecond
	cfg.Artifacts.Dir = t.TempDir()

	driver := mocks.NewMockDriver(publicSite)
	r := runner.New(driver, cfg, nil)
	manager := runs.NewManager(r, 2, nil)
	defer manager.Shutdown(context.Background())

	selected, err := scenario.BuiltIn().Select("tag:public")
	require.NoError(t, err)
	require.Len(t, selected, 3)

	var ids []uuid.UUID
	for _, sc := range selected {
		id, err := manager.Submit(sc, "")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.Eventually(t, func() bool {
		for _, res := range manager.List() {
			if !res.Status.Terminal() {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	results := manager.List()
	for i, res := range results {
		assert.Equal(t, ids[i], res.RunID)
		assert.Equal(t, scenario.StatusPassed, res.Status, "%s: %s %s", res.ScenarioID, res.Kind, res.Reason)
	}

	// public-pages screenshots each of its five pages.
	assert.Len(t, results[0].Artifacts, 5)
	assert.Equal(t, filepath.Join(cfg.Artifacts.Dir, "public-pages_2_step.png"), results[0].Artifacts[0])
	// home-navigation also captures its final state.
	assert.Equal(t, filepath.Join(cfg.Artifacts.Dir, "home-navigation_4_passed.png"), results[2].LastArtifact())

	var buf bytes.Buffer
	require.NoError(t, report.NewPrinter(&buf, false).Print(results))
	assert.Contains(t, buf.String(), "PASS public-pages (15 steps, ")
	assert.Contains(t, buf.String(), "3 scenarios: 3 passed, 0 failed")
	assert.Len(t, driver.Sessions, 3)
}
