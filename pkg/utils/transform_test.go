package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedup(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"preserves order", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
		{"trims and drops empties", []string{" a ", "", "  ", "a"}, []string{"a"}},
		{"nil input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dedup(tt.in))
		})
	}
}

func TestChunk(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name string
		in   []string
		size int
		want [][]string
	}{
		{"even split", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"ragged tail", in, 2, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{"oversized chunk", in, 10, [][]string{in}},
		{"non-positive size keeps everything together", in, 0, [][]string{in}},
		{"empty input", nil, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.in, tt.size))
		})
	}
}
