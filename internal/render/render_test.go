package render

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"portfolio/internal/apperr"
	"portfolio/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string { return &s }

func loadTemplate(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/template.html")
	require.NoError(t, err)
	return string(b)
}

func TestPagesURL(t *testing.T) {
	assert.Equal(t, "https://alice.github.io/site", PagesURL("alice", "site"))
	assert.Equal(t, "https://alice.github.io/my%20site", PagesURL("alice", "my site"))
}

func TestCard(t *testing.T) {
	tests := []struct {
		name     string
		repo     model.Repository
		contains []string
		absent   []string
		tags     int
	}{
		{
			name:     "description and topics",
			repo:     model.Repository{Name: "MyProject", Description: strPtr("A cool project"), Topics: []string{"ai", "ml"}},
			contains: []string{"<h3>MyProject</h3>", "<p>A cool project</p>", `<span class="tag">ai</span>`, `<span class="tag">ml</span>`},
			tags:     2,
		},
		{
			name:     "null description",
			repo:     model.Repository{Name: "site"},
			contains: []string{"<p>No description provided.</p>"},
			tags:     0,
		},
		{
			name:     "empty description",
			repo:     model.Repository{Name: "site", Description: strPtr(""), Topics: []string{}},
			contains: []string{"No description provided."},
			tags:     0,
		},
		{
			name: "markup is escaped",
			repo: model.Repository{
				Name:        "x<y",
				Description: strPtr(`<script>alert("hi")</script>`),
				Topics:      []string{"<b>bold</b>"},
			},
			contains: []string{"&lt;script&gt;", "x&lt;y", "&lt;b&gt;bold&lt;/b&gt;"},
			absent:   []string{"<script>", "<b>"},
			tags:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Card("alice", tt.repo)
			require.NoError(t, err)

			html := string(got)
			for _, want := range tt.contains {
				assert.Contains(t, html, want)
			}
			for _, bad := range tt.absent {
				assert.NotContains(t, html, bad)
			}
			assert.Equal(t, tt.tags, strings.Count(html, `class="tag"`))
		})
	}
}

func TestRender_SingleRepositoryScenario(t *testing.T) {
	repos := []model.Repository{{Name: "site", HasPages: true}}

	out, err := Render(loadTemplate(t), "alice", repos)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `href="https://alice.github.io/site"`)
	assert.Contains(t, html, "No description provided.")
	assert.NotContains(t, html, `<span class="tag">`)
	assert.Contains(t, html, "<title>alice | Projects</title>")
}

func TestRender_PreservesOrderAndCount(t *testing.T) {
	repos := []model.Repository{{Name: "zeta"}, {Name: "alpha"}, {Name: "mid"}}

	out, err := Render(loadTemplate(t), "alice", repos)
	require.NoError(t, err)

	html := string(out)
	assert.Equal(t, 3, strings.Count(html, `class="card"`))
	iz := strings.Index(html, "<h3>zeta</h3>")
	ia := strings.Index(html, "<h3>alpha</h3>")
	im := strings.Index(html, "<h3>mid</h3>")
	assert.True(t, iz >= 0 && iz < ia && ia < im, "cards out of order")
}

func TestRender_EmptyListKeepsMarkup(t *testing.T) {
	text := loadTemplate(t)

	out, err := Render(text, "alice", nil)
	require.NoError(t, err)

	html := string(out)
	assert.NotContains(t, html, `class="card"`)
	assert.Contains(t, html, `<main class="grid">`)
	assert.Contains(t, html, "</main>")
	assert.Contains(t, html, "<h1>alice's Projects</h1>")
}

func TestRender_CSSBracesSurvive(t *testing.T) {
	out, err := Render(loadTemplate(t), "alice", nil)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "body { font-family: system-ui, sans-serif; background: #0d1117; color: #c9d1d9; margin: 0; }")
	assert.Contains(t, html, ".card:hover { border-color: #58a6ff; }")
	assert.NotContains(t, html, "{{")
}

func TestRender_OwnerIsEscaped(t *testing.T) {
	out, err := Render("<h1>{{.USERNAME}}</h1>{{.projects_grid}}", "<i>eve</i>", nil)
	require.NoError(t, err)

	assert.Equal(t, "<h1>&lt;i&gt;eve&lt;/i&gt;</h1>", string(out))
}

func TestRender_CardsJoinedWithNewline(t *testing.T) {
	repos := []model.Repository{{Name: "a"}, {Name: "b"}}

	out, err := Render("{{.USERNAME}}|{{.projects_grid}}", "alice", repos)
	require.NoError(t, err)

	first, err := Card("alice", repos[0])
	require.NoError(t, err)
	second, err := Card("alice", repos[1])
	require.NoError(t, err)

	assert.Equal(t, "alice|"+string(first)+"\n"+string(second), string(out))
}

func TestParsePage_MissingPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		missing string
	}{
		{name: "no username", text: "<main>{{.projects_grid}}</main>", missing: UsernameKey},
		{name: "no grid", text: "<h1>{{.USERNAME}}</h1>", missing: GridKey},
		{name: "neither", text: "<style>body { color: red; }</style>", missing: "USERNAME, projects_grid"},
		{name: "python style braces", text: "<h1>{USERNAME}</h1>{projects_grid}", missing: "USERNAME, projects_grid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePage(tt.text)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindTemplate))
			assert.ErrorIs(t, err, ErrMissingPlaceholder)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestParsePage_PlaceholderInsideConditional(t *testing.T) {
	_, err := ParsePage(`{{if .USERNAME}}<h1>{{.USERNAME}}</h1>{{end}}{{with .projects_grid}}{{.}}{{end}}`)
	assert.NoError(t, err)
}

func TestParsePage_SyntaxError(t *testing.T) {
	_, err := ParsePage("{{.USERNAME}} {{.projects_grid")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTemplate))
}

func TestRender_UnknownPlaceholderFails(t *testing.T) {
	_, err := Render("{{.USERNAME}}{{.projects_grid}}{{.EMAIL}}", "alice", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTemplate))
}
