package render

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"text/template/parse"

	"portfolio/internal/apperr"
	"portfolio/internal/model"
)

// Placeholder names a page template must reference, as {{.USERNAME}} and
// {{.projects_grid}}.
const (
	UsernameKey = "USERNAME"
	GridKey     = "projects_grid"
)

// CardSeparator joins consecutive cards in the grid.
const CardSeparator = "\n"

var ErrMissingPlaceholder = errors.New("missing placeholder")

// Page is a parsed page template known to reference both placeholders.
type Page struct {
	tmpl *template.Template
}

// ParsePage parses text and checks that both placeholders are used.
// Literal braces in stylesheets never collide with {{ }} actions.
func ParsePage(text string) (*Page, error) {
	t, err := template.New("page").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, apperr.New("render.parse", apperr.KindTemplate, err)
	}

	seen := map[string]bool{}
	if t.Tree != nil {
		collectNode(t.Tree.Root, seen)
	}

	var missing []string
	for _, key := range []string{UsernameKey, GridKey} {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Newf("render.parse", apperr.KindTemplate, "%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}

	return &Page{tmpl: t}, nil
}

// Render composes the page for owner with one card per repository, in order.
func (p *Page) Render(owner string, repos []model.Repository) ([]byte, error) {
	cards := make([]string, 0, len(repos))
	for _, r := range repos {
		c, err := Card(owner, r)
		if err != nil {
			return nil, apperr.Newf("render.card", apperr.KindTemplate, "repository %q: %w", r.Name, err)
		}
		cards = append(cards, string(c))
	}

	data := map[string]any{
		UsernameKey: owner,
		GridKey:     template.HTML(strings.Join(cards, CardSeparator)),
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return nil, apperr.New("render.page", apperr.KindTemplate, err)
	}
	return buf.Bytes(), nil
}

// Render parses text and renders it in one step.
func Render(text, owner string, repos []model.Repository) ([]byte, error) {
	p, err := ParsePage(text)
	if err != nil {
		return nil, err
	}
	return p.Render(owner, repos)
}

// collectNode records the first identifier of every field reference under n.
func collectNode(n parse.Node, seen map[string]bool) {
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectNode(c, seen)
		}
	case *parse.ActionNode:
		collectPipe(n.Pipe, seen)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.TemplateNode:
		collectPipe(n.Pipe, seen)
	}
}

func collectBranch(b *parse.BranchNode, seen map[string]bool) {
	collectPipe(b.Pipe, seen)
	collectNode(b.List, seen)
	collectNode(b.ElseList, seen)
}

func collectPipe(p *parse.PipeNode, seen map[string]bool) {
	if p == nil {
		return
	}
	for _, cmd := range p.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				if len(a.Ident) > 0 {
					seen[a.Ident[0]] = true
				}
			case *parse.PipeNode:
				collectPipe(a, seen)
			}
		}
	}
}
