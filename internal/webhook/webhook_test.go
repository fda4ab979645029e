package webhook

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushbin/pushbin-server/internal/message"
)

func TestProjectGitHub(t *testing.T) {
	t.Parallel()
	payload := map[string]any{
		"action": "opened",
		"repository": map[string]any{
			"full_name": "octo/hello",
		},
	}

	title, body := Project(TypeGitHub, payload)
	require.NotNil(t, title)
	assert.Equal(t, "GitHub: opened on octo/hello", *title)
	assert.True(t, json.Valid([]byte(body)), "body should be the pretty-printed payload")
	assert.Contains(t, body, "octo/hello")
}

func TestProjectGitHubMissingFields(t *testing.T) {
	t.Parallel()
	title, _ := Project(TypeGitHub, map[string]any{})
	require.NotNil(t, title)
	assert.Equal(t, "GitHub: event on unknown", *title)
}

func TestProjectGrafana(t *testing.T) {
	t.Parallel()
	title, body := Project(TypeGrafana, map[string]any{
		"title":   "High CPU",
		"message": "CPU above 90% for 5m",
	})
	require.NotNil(t, title)
	assert.Equal(t, "High CPU", *title)
	assert.Equal(t, "CPU above 90% for 5m", body)
}

func TestProjectGenericWithFields(t *testing.T) {
	t.Parallel()
	title, body := Project(TypeGeneric, map[string]any{
		"title":   "hello",
		"message": "world",
	})
	require.NotNil(t, title)
	assert.Equal(t, "hello", *title)
	assert.Equal(t, "world", body)
}

func TestProjectGenericFallsBackToJSON(t *testing.T) {
	t.Parallel()
	title, body := Project("unrecognised-type", map[string]any{"foo": "bar"})
	assert.Nil(t, title)
	assert.True(t, json.Valid([]byte(body)))
	assert.Contains(t, body, "bar")
}

func testView() message.View {
	title := "Boom"
	topicName := "alerts.cpu"
	return message.View{
		ID:       12,
		Topic:    &topicName,
		Title:    &title,
		Message:  "spike",
		Priority: 4,
	}
}

func TestRenderBodySubstitutions(t *testing.T) {
	t.Parallel()
	tmpl := `{"text":"{{title}}: {{message}} on {{topic}} (p{{priority}})"}`
	got := RenderBody(&tmpl, testView())
	assert.Equal(t, `{"text":"Boom: spike on alerts.cpu (p4)"}`, got)
}

func TestRenderBodyJSONPlaceholder(t *testing.T) {
	t.Parallel()
	tmpl := `{{json}}`
	got := RenderBody(&tmpl, testView())

	var decoded message.View
	require.NoError(t, json.Unmarshal([]byte(got), &decoded))
	assert.Equal(t, int64(12), decoded.ID)
	assert.Equal(t, "spike", decoded.Message)
}

func TestRenderBodyNilTemplate(t *testing.T) {
	t.Parallel()
	got := RenderBody(nil, testView())
	assert.True(t, json.Valid([]byte(got)))
	assert.True(t, strings.Contains(got, "spike"))
}

func TestNormalizeMethod(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"GET", "GET"}, {"get", "GET"}, {"PUT", "PUT"}, {"PATCH", "PATCH"},
		{"POST", "POST"}, {"DELETE", "POST"}, {"", "POST"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeMethod(tt.in), "normalizeMethod(%q)", tt.in)
	}
}
