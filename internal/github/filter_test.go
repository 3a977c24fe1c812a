package github

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"portfolio/internal/model"
)

func TestKeep(t *testing.T) {
	tests := []struct {
		name     string
		hasPages bool
		fork     bool
		want     bool
	}{
		{name: "no pages, not a fork", hasPages: false, fork: false, want: false},
		{name: "pages, fork", hasPages: true, fork: true, want: false},
		{name: "no pages, fork", hasPages: false, fork: true, want: false},
		{name: "pages, not a fork", hasPages: true, fork: false, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := model.Repository{Name: "repo", HasPages: tt.hasPages, Fork: tt.fork}
			assert.Equal(t, tt.want, Keep(r))
		})
	}
}
