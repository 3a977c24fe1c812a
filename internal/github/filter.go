package github

import "portfolio/internal/model"

// Keep reports whether r belongs in the portfolio: Pages enabled and not a fork.
func Keep(r model.Repository) bool {
	return r.HasPages && !r.Fork
}
