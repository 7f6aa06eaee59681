package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltInCatalog(t *testing.T) {
	c := BuiltIn()
	assert.Equal(t, []string{
		"login", "admin-page", "admin-photo-field", "winners-crud",
		"activities-crud", "gallery-crud", "public-pages", "activity-listings",
		"home-navigation",
	}, c.IDs())

	for _, sc := range c.All() {
		assert.NoError(t, Validate(sc), sc.ID)
	}
}

func TestAdminScenariosShareOneRoute(t *testing.T) {
	v := Vars{}
	for _, sc := range BuiltIn().All() {
		if !slices.Contains(sc.Tags, "admin") {
			continue
		}
		first := sc.Steps[0]
		require.Equal(t, ActionNavigate, first.Action, sc.ID)
		target, err := v.Resolve(first.Value)
		require.NoError(t, err, sc.ID)
		assert.Equal(t, DefaultAdminPath, target, sc.ID)
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := BuiltIn()
	sc, ok := c.Get("winners-crud")
	require.True(t, ok)
	sc.Steps[1].Value = "changed"
	sc.Steps[1].Target.Value = "changed"

	again, _ := c.Get("winners-crud")
	assert.Equal(t, "{{admin.email}}", again.Steps[1].Value)
	assert.Equal(t, "Email", again.Steps[1].Target.Value)
}

func TestWinnersCRUDShape(t *testing.T) {
	sc, ok := BuiltIn().Get("winners-crud")
	require.True(t, ok)

	var actions []string
	for _, st := range sc.Steps {
		actions = append(actions, string(st.Action))
	}
	assert.Contains(t, strings.Join(actions, ","), "upload,check,click,expect_text")

	last := sc.Steps[len(sc.Steps)-1]
	assert.Equal(t, ActionExpectHidden, last.Action)
	assert.Equal(t, locator.Text("Updated Winner"), *last.Target)
	assert.True(t, sc.FinalArtifact)
}

func TestCatalogSelect(t *testing.T) {
	c := BuiltIn()

	all, err := c.Select()
	require.NoError(t, err)
	assert.Len(t, all, c.Len())

	picked, err := c.Select("gallery-crud", "tag:crud")
	require.NoError(t, err)
	var ids []string
	for _, sc := range picked {
		ids = append(ids, sc.ID)
	}
	assert.Equal(t, []string{"gallery-crud", "winners-crud", "activities-crud"}, ids)

	_, err = c.Select("login", "nope", "tag:missing")
	assert.EqualError(t, err, "unknown scenario(s): nope, tag:missing")
}

func TestCatalogAddRejects(t *testing.T) {
	c := BuiltIn()
	assert.Error(t, c.Add(Scenario{ID: "login", Steps: Login()}), "duplicate id")
	assert.Error(t, c.Add(Scenario{ID: "bad id", Steps: Login()}))
	assert.Error(t, c.Add(Scenario{ID: "empty"}))
}

func TestValidateStep(t *testing.T) {
	valid := []Step{
		Navigate("/about", browser.LoadStateNetworkIdle),
		Fill(locator.Label("Caption"), ""),
		Upload(locator.Label("Image"), "a.png"),
		ExpectText("Hall of Fame"),
		Screenshot(""),
	}
	for _, st := range valid {
		assert.NoError(t, ValidateStep(st), st.Action)
	}

	invalid := []Step{
		{Action: "hover"},
		{Action: ActionNavigate},
		{Action: ActionNavigate, Value: "/", Wait: Wait{Until: "commit"}},
		{Action: ActionClick},
		{Action: ActionUpload, Target: target(locator.Label("Image"))},
		{Action: ActionExpectText},
		{Action: ActionFill, Target: &locator.Descriptor{By: "xpath", Value: "//input"}},
		{Action: ActionClick, Target: target(locator.CSS("a")), Timeout: -1},
	}
	for _, st := range invalid {
		assert.Error(t, ValidateStep(st), st.Action)
	}
}

const userScenarios = `
id: contact-page
description: Contact page renders
tags: [public]
steps:
  - action: navigate
    value: /contact
    wait: {until: networkidle, timeout: 20s}
  - action: expect_visible
    target: role=heading[name="Contact"]
    timeout: 3s
  - action: upload
    target: label=Resume
    files: ["{{fixtures}}/test_image.png"]
finalArtifact: true
---
id: soft-check
steps:
  - action: expect_text
    value: Newsletter
    soft: true
`

func TestDecode(t *testing.T) {
	scenarios, err := Decode(strings.NewReader(userScenarios))
	require.NoError(t, err)
	require.Len(t, scenarios, 2)

	sc := scenarios[0]
	assert.Equal(t, "contact-page", sc.ID)
	assert.True(t, sc.FinalArtifact)
	assert.Equal(t, browser.LoadStateNetworkIdle, sc.Steps[0].Wait.Until)
	assert.Equal(t, "20s", sc.Steps[0].Wait.Timeout.String())
	assert.Equal(t, locator.Role("heading", "Contact"), *sc.Steps[1].Target)
	assert.Equal(t, "3s", sc.Steps[1].Timeout.String())
	assert.True(t, scenarios[1].Steps[0].Soft)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("id: x\nstep:\n  - action: navigate\n"))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("id: x\nsteps:\n  - action: hover\n"))
	assert.ErrorContains(t, err, "unknown action")
}

func TestLoadDirAndCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(userScenarios), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("id: alpha\nsteps:\n  - action: screenshot\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	assert.Equal(t, "alpha", scenarios[0].ID)

	c, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, BuiltIn().Len()+3, c.Len())

	missing, err := LoadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte("id: login\nsteps:\n  - action: screenshot\n"), 0o644))
	_, err = LoadCatalog(dir)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
