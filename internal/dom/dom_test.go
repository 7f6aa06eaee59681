package dom

import (
	"strings"
	"testing"

	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	in := `<html><head><script>var x = 1;</script><title>T</title></head>` +
		`<body><div class="c" id="a">Hi <b>there</b><input type="text" value=""></div></body></html>`

	out, err := Snapshot(in, 0)
	require.NoError(t, err)
	assert.Equal(t,
		`<html><head><title>T </title></head><body><div id="a">Hi <b>there </b><input type="text" value=""></div></body></html>`,
		out)
}

func TestSnapshot_UnknownTagsKeepChildren(t *testing.T) {
	out, err := Snapshot(`<body><article><h2>Hall of Fame</h2></article><svg><path/></svg></body>`, 0)
	require.NoError(t, err)
	assert.Contains(t, out, "<h2>Hall of Fame </h2>")
	assert.NotContains(t, out, "article")
	assert.NotContains(t, out, "svg")
}

func TestSnapshot_Truncates(t *testing.T) {
	out, err := Snapshot(`<body><p>`+strings.Repeat("x", 500)+`</p></body>`, 40)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.Equal(t, 40+len("…"), len(out))
}

func TestQueryExpression(t *testing.T) {
	expr, err := QueryExpression(locator.Role("button", `Add "Winner"`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(expr, "(function(q) {"))
	assert.Contains(t, expr, `{"by":"role","value":"button","name":"Add \"Winner\""}`)

	nth, err := NthExpression(locator.Text("Test Winner"), 2)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(nth, "[2]"))

	count, err := CountExpression(locator.CSS("nav"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(count, ".length"))

	_, err = QueryExpression(locator.Descriptor{By: "xpath", Value: "//a"})
	assert.Error(t, err)
}

func TestFillFunction_EscapesValue(t *testing.T) {
	fn := FillFunction("it's \"quoted\"\n")
	assert.Contains(t, fn, `const value = "it's \"quoted\"\n";`)
}

func TestProbe_Capabilities(t *testing.T) {
	tests := []struct {
		name  string
		probe Probe
		want  locator.Capability
	}{
		{"hidden file input", Probe{Tag: "input", File: true, Enabled: true}, locator.Uploadable},
		{"text input", Probe{Tag: "input", Visible: true, Enabled: true, Editable: true},
			locator.Visible | locator.Clickable | locator.Fillable},
		{"disabled button", Probe{Tag: "button", Visible: true}, locator.Visible},
		{"checkbox", Probe{Tag: "button", Visible: true, Enabled: true, Checkable: true},
			locator.Visible | locator.Clickable | locator.Checkable},
		{"hidden text input", Probe{Tag: "input", Enabled: true, Editable: true}, locator.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.probe.Capabilities())
		})
	}
}
