package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/browser/mocks"
	"github.com/copyleftdev/sablcheck/internal/config"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const extraScenarios = `id: about-page
tags: [public]
steps:
  - action: navigate
    value: /about
  - action: expect_text
    value: About SABL
---
id: broken
steps:
  - action: navigate
    value: /about
  - action: expect_text
    value: Upcoming Events
`

type cli struct {
	driver  *mocks.MockDriver
	browser *config.BrowserConfig
	config  string
	dir     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "extra.yaml"), []byte(extraScenarios), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := `target:
  baseURL: http://sabl.test
timeouts:
  locate: 50ms
  assertion: 50ms
  pollInterval: 5ms
artifacts:
  dir: ` + filepath.Join(dir, "artifacts") + `
scenarios:
  dir: ` + scenarios + `
log:
  level: error
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	page := func() *mocks.MockSession {
		s := mocks.NewMockSession(
			&mocks.MockElement{Text: "sablcheck doctor", Caps: locator.Visible},
			&mocks.MockElement{Role: "button", Name: "Ready", Caps: locator.Visible | locator.Clickable},
			&mocks.MockElement{Label: "Probe", Caps: locator.Visible | locator.Fillable},
		)
		s.Pages["/about"] = []*mocks.MockElement{{Text: "About SABL", Caps: locator.Visible}}
		return s
	}
	return &cli{driver: mocks.NewMockDriver(page), config: cfgPath, dir: dir}
}

func (c *cli) exec(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.newDriver = func(cfg *config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
		c.browser = cfg
		return c.driver, nil
	}
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRunPassing(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("run", "--no-color", "about-page")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS about-page (2 steps, ")
	assert.Contains(t, out, "1 scenarios: 1 passed, 0 failed")
	assert.True(t, c.driver.WasShutdownCalled())
	assert.Equal(t, []string{"http://sabl.test/about"}, c.driver.Sessions[0].Visited)
}

func TestRunFailingExitsNonZero(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("run", "--no-color", "about-page", "broken")
	assert.True(t, errors.Is(err, errChecksFailed))
	assert.Contains(t, out, "PASS about-page")
	assert.Contains(t, out, "FAIL broken step 1: AssertionTimeout")
	assert.Contains(t, out, "broken_1_timed_out.png")
}

func TestRunJSON(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("run", "--json", "about-page")
	require.NoError(t, err)

	var doc struct {
		Total   int `json:"total"`
		Passed  int `json:"passed"`
		Results []struct {
			ScenarioID string `json:"scenario_id"`
			Status     string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 1, doc.Total)
	assert.Equal(t, 1, doc.Passed)
	assert.Equal(t, "passed", doc.Results[0].Status)
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	c := newCLI(t)
	_, err := c.exec("run", "--no-color", "--headed", "--base-url", "http://127.0.0.1:3003", "--driver", "playwright", "about-page")
	require.NoError(t, err)
	assert.False(t, c.browser.Headless)
	assert.Equal(t, "playwright", c.browser.Driver)
	assert.Equal(t, []string{"http://127.0.0.1:3003/about"}, c.driver.Sessions[0].Visited)
}

func TestRunRejectsUnknownScenario(t *testing.T) {
	c := newCLI(t)
	_, err := c.exec("run", "nope")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errChecksFailed))
	assert.ErrorContains(t, err, "unknown scenario(s): nope")
	assert.Empty(t, c.driver.Sessions)
}

func TestList(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("list")
	require.NoError(t, err)
	for _, id := range []string{"login", "winners-crud", "public-pages", "about-page", "broken"} {
		assert.Contains(t, out, id)
	}

	out, err = c.exec("list", "--steps", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "navigate {{admin.path}} until load")
	assert.Contains(t, out, `fill label=Email "{{admin.email}}"`)
	assert.NotContains(t, out, "winners-crud")
}

func TestDoctor(t *testing.T) {
	c := newCLI(t)
	out, err := c.exec("doctor")
	require.NoError(t, err, out)
	for _, check := range []string{"navigate", "locate by text", "locate by role", "locate by label", "screenshot"} {
		assert.Contains(t, out, "ok   "+check)
	}
	require.Len(t, c.driver.Sessions, 1)
	assert.True(t, c.driver.Sessions[0].Closed)
}

func TestDoctorReportsFailures(t *testing.T) {
	c := newCLI(t)
	c.driver.NewSessionErr = errors.New("chrome not found")
	out, err := c.exec("doctor")
	assert.True(t, errors.Is(err, errChecksFailed))
	assert.Contains(t, out, "FAIL open session: chrome not found")
}
