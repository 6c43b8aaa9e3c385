package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageClamp(t *testing.T) {
	cases := []struct {
		in, want Page
	}{
		{Page{Skip: 0, Limit: 10}, Page{Skip: 0, Limit: 10}},
		{Page{Skip: -5, Limit: 0}, Page{Skip: 0, Limit: 1}},
		{Page{Skip: 3, Limit: 500}, Page{Skip: 3, Limit: MaxLimit}},
		{Page{Skip: 1, Limit: -1}, Page{Skip: 1, Limit: 1}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Clamp(), "Clamp(%+v)", tc.in)
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{2, 3}, Apply(items, Page{Skip: 1, Limit: 2}))
	assert.Equal(t, []int{4, 5}, Apply(items, Page{Skip: 3, Limit: 10}))
	assert.Empty(t, Apply(items, Page{Skip: 9, Limit: 10}))
	assert.Empty(t, Apply([]int(nil), Page{Skip: 0, Limit: 10}))
}
