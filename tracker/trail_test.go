package tracker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestTrail(t *testing.T) {

	tests := []struct {
		name     string
		size     int
		add      []Point
		expected []Point
	}{
		{
			name:     "unbounded keeps everything",
			size:     0,
			add:      []Point{Pt(1, 1), Pt(2, 2), Pt(3, 3)},
			expected: []Point{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(3, 3)},
		},
		{
			name:     "bounded drops oldest",
			size:     3,
			add:      []Point{Pt(1, 1), Pt(2, 2), Pt(3, 3), Pt(4, 4)},
			expected: []Point{Pt(2, 2), Pt(3, 3), Pt(4, 4)},
		},
		{
			name:     "bounded under size",
			size:     5,
			add:      []Point{Pt(1, 1)},
			expected: []Point{Pt(0, 0), Pt(1, 1)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trail := NewTrail(tc.size, Pt(0, 0))
			for _, p := range tc.add {
				trail.Add(p)
			}

			if diff := cmp.Diff(tc.expected, trail.Points()); diff != "" {
				t.Errorf("trail points mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.expected[len(tc.expected)-1], trail.Last())
		})
	}
}

func TestTrailLastTwo(t *testing.T) {

	trail := NewTrail(0, Pt(5, 5))

	_, _, ok := trail.LastTwo()
	assert.False(t, ok)

	trail.Add(Pt(6, 7))
	prev, curr, ok := trail.LastTwo()

	assert.True(t, ok)
	assert.Equal(t, Pt(5, 5), prev)
	assert.Equal(t, Pt(6, 7), curr)
}

func TestTrailPointsIsCopy(t *testing.T) {

	trail := NewTrail(0, Pt(1, 1))
	pts := trail.Points()
	pts[0] = Pt(9, 9)

	assert.Equal(t, Pt(1, 1), trail.Last())
}
