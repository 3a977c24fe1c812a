package render

import (
	"bytes"
	"html/template"
	"net/url"

	"portfolio/internal/model"
)

// DefaultDescription replaces a null or empty repository description.
const DefaultDescription = "No description provided."

const cardHTML = `
            <a href="{{.URL}}" target="_blank" rel="noopener noreferrer" class="card">
                <h3>{{.Name}}</h3>
                <p>{{.Description}}</p>
                <div style="display: flex; flex-wrap: wrap; gap: 5px;">
                    {{range .Topics}}<span class="tag">{{.}}</span>{{end}}
                </div>
            </a>
        `

var cardTmpl = template.Must(template.New("card").Parse(cardHTML))

type cardData struct {
	URL         string
	Name        string
	Description string
	Topics      []string
}

// PagesURL is the GitHub Pages project-site address of repository name.
// User/organization root sites and custom domains are not detected.
func PagesURL(owner, name string) string {
	u := url.URL{Scheme: "https", Host: owner + ".github.io", Path: "/" + name}
	return u.String()
}

// Card renders one repository as an HTML fragment. Every interpolated value is
// escaped for its context.
func Card(owner string, r model.Repository) (template.HTML, error) {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}

	var buf bytes.Buffer
	err := cardTmpl.Execute(&buf, cardData{
		URL:         PagesURL(owner, r.Name),
		Name:        r.Name,
		Description: r.DescriptionOr(DefaultDescription),
		Topics:      topics,
	})
	if err != nil {
		return "", err
	}
	// Output of html/template is safe to embed as-is.
	return template.HTML(buf.String()), nil
}
