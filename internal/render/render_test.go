package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"participant_name": "Jean"}

	assert.Equal(t, "Hello Jean", Substitute("Hello {{participant_name}}", vars))
	assert.Equal(t, "Hello Jean", Substitute("Hello {{ participant_name }}", vars))
}

func TestSubstitute_MissingVariableRendersEmpty(t *testing.T) {
	out := Substitute("Hello {{unknown}}!", map[string]string{})

	assert.Equal(t, "Hello !", out)
	assert.NotContains(t, out, "{{")
}

func TestSubstitute_MultipleOccurrences(t *testing.T) {
	vars := map[string]string{"name": "Jean", "event": "Salon"}

	out := Substitute("{{name}} @ {{event}} ({{name}})", vars)

	assert.Equal(t, "Jean @ Salon (Jean)", out)
}

func TestParseSchema_RejectsUnknownZoneType(t *testing.T) {
	_, err := ParseSchema(`{"width_mm":100,"height_mm":100,"zones":[{"type":"video"}]}`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestParseSchema_RejectsZeroDimensions(t *testing.T) {
	_, err := ParseSchema(`{"width_mm":0,"height_mm":100,"zones":[]}`)

	require.Error(t, err)
}

func TestResolve_TextZoneSubstitution(t *testing.T) {
	schema := &Schema{
		WidthMM:  100,
		HeightMM: 50,
		Zones: []Zone{
			{
				Type:     ZoneText,
				Position: Position{X: 10, Y: 10, Width: 80, Height: 10},
				Content:  ZoneContent{Text: "Hello {{participant_name}}"},
			},
		},
	}
	settings, _ := ParseSettings("")

	doc := Resolve(schema, &Styles{}, settings, map[string]string{"participant_name": "Jean"})

	require.Len(t, doc.Elements, 1)
	assert.Equal(t, "Hello Jean", doc.Elements[0].Text)
}

func TestResolve_QRBindsVariable(t *testing.T) {
	schema := &Schema{
		WidthMM:  100,
		HeightMM: 100,
		Zones: []Zone{
			{
				Type:     ZoneQR,
				Position: Position{X: 10, Y: 10, Width: 40, Height: 40},
				Content:  ZoneContent{Variable: "checkin_url"},
			},
		},
	}
	settings, _ := ParseSettings("")

	doc := Resolve(schema, &Styles{}, settings, map[string]string{"checkin_url": "https://x.test/t/abc"})

	require.Len(t, doc.Elements, 1)
	assert.Equal(t, "https://x.test/t/abc", doc.Elements[0].Payload)
}

func TestResolve_GlobalStyleDefaults(t *testing.T) {
	schema := &Schema{
		WidthMM:  100,
		HeightMM: 50,
		Zones: []Zone{
			{Type: ZoneText, Content: ZoneContent{Text: "x"}},
		},
	}
	styles := &Styles{FontFamily: "Times", FontSizePt: 18, TextColor: "#112233"}
	settings, _ := ParseSettings("")

	doc := Resolve(schema, styles, settings, nil)

	assert.Equal(t, "Times", doc.Elements[0].Style.FontFamily)
	assert.Equal(t, 18.0, doc.Elements[0].Style.FontSizePt)
	assert.Equal(t, "#112233", doc.Elements[0].Style.Color)
}

func builtinDoc(t *testing.T) *Document {
	t.Helper()
	settings, err := ParseSettings("")
	require.NoError(t, err)
	return Resolve(BuiltinSchema(), &Styles{}, settings, map[string]string{
		"event_name":       "Salon Horizon",
		"participant_name": "Jean Dupont",
		"ticket_type":      "Standard",
		"ticket_token":     "abc123",
		"checkin_url":      "https://x.test/checkin/abc123",
	})
}

func TestEncodeHTML(t *testing.T) {
	doc := builtinDoc(t)

	out, err := EncodeHTML(doc)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "Salon Horizon")
	assert.Contains(t, html, "Jean Dupont")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "width:105.0mm")
}

func TestEncodeHTML_EscapesContent(t *testing.T) {
	schema := &Schema{
		WidthMM:  100,
		HeightMM: 50,
		Zones: []Zone{
			{Type: ZoneText, Content: ZoneContent{Text: "{{name}}"}},
		},
	}
	settings, _ := ParseSettings("")
	doc := Resolve(schema, &Styles{}, settings, map[string]string{"name": "<script>x</script>"})

	out, err := EncodeHTML(doc)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>x</script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestEncodeHTML_Deterministic(t *testing.T) {
	doc := builtinDoc(t)

	first, err := EncodeHTML(doc)
	require.NoError(t, err)
	second, err := EncodeHTML(doc)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestEncodePDF(t *testing.T) {
	doc := builtinDoc(t)

	out, err := EncodePDF(doc)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, len(out), 1000)
}

func TestEncodePDF_Deterministic(t *testing.T) {
	// the builtin layout mixes regular and bold fonts plus a QR image, so
	// any object-ordering instability in the writer shows up here
	doc := builtinDoc(t)

	first, err := EncodePDF(doc)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := EncodePDF(doc)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again), "render %d diverged", i+1)
	}
}

func TestEncodeESCPOS(t *testing.T) {
	doc := builtinDoc(t)

	out, err := EncodeESCPOS(doc)
	require.NoError(t, err)

	// initialize, text, qr store, cut
	assert.True(t, bytes.HasPrefix(out, []byte{0x1b, 0x40}))
	assert.Contains(t, string(out), "Jean Dupont")
	assert.Contains(t, string(out), "https://x.test/checkin/abc123")
	assert.True(t, bytes.HasSuffix(out, []byte{0x1d, 0x56, 0x01}))
}

func TestEncodeESCPOS_Deterministic(t *testing.T) {
	doc := builtinDoc(t)

	first, err := EncodeESCPOS(doc)
	require.NoError(t, err)
	second, err := EncodeESCPOS(doc)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestEncodeESCPOS_SingleQRBlock(t *testing.T) {
	schema := &Schema{
		WidthMM:  80,
		HeightMM: 120,
		Zones: []Zone{
			{Type: ZoneQR, Content: ZoneContent{Variable: "a"}},
			{Type: ZoneQR, Content: ZoneContent{Variable: "b"}},
		},
	}
	settings, _ := ParseSettings("")
	doc := Resolve(schema, &Styles{}, settings, map[string]string{"a": "first", "b": "second"})

	out, err := EncodeESCPOS(doc)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(out), "first"))
	assert.NotContains(t, string(out), "second")
}

func TestHexRGB(t *testing.T) {
	r, g, b := hexRGB("#1a2b3c")
	assert.Equal(t, []int{26, 43, 60}, []int{r, g, b})

	r, g, b = hexRGB("bogus")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
}
