package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportRow_TagNames(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want []string
	}{
		{name: "empty", tags: "", want: nil},
		{name: "whitespace only", tags: "   ", want: nil},
		{name: "single", tags: "Groceries", want: []string{"Groceries"}},
		{name: "trims around commas", tags: "Groceries, Dining", want: []string{"Groceries", "Dining"}},
		{name: "drops empty parts", tags: "Groceries,, ,Dining,", want: []string{"Groceries", "Dining"}},
		{name: "deduplicates", tags: "Dining, Dining", want: []string{"Dining"}},
		{name: "case sensitive", tags: "dining, Dining", want: []string{"dining", "Dining"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := ImportRow{Tags: tt.tags}
			assert.Equal(t, tt.want, row.TagNames())
		})
	}
}
