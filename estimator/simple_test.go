package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objectSDL = `
type Query {
  aField: String
  anotherField: String
  anObj: Obj
}

type Obj {
  aField: String
  anotherField: String
  anotherObj: Obj
}
`

func TestSimple(t *testing.T) {
	tests := []struct {
		name  string
		query string
		c     int
		want  int
	}{
		{"root field", `query Something { aField }`, 3, 3},
		{"root fields are added", `query Something { aField anotherField }`, 5, 10},
		{"objects add their body", `{ anObj { aField anotherField } }`, 1, 3},
		{"two levels", `{ anObj { anotherObj { aField } } }`, 1, 3},
		{"zero", `{ anObj { aField } }`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := NewSimple(tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, score(t, objectSDL, tt.query, est))
		})
	}
}

func TestSimple_RejectsNegative(t *testing.T) {
	_, err := NewSimple(-1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimple_Describe(t *testing.T) {
	est, err := NewSimple(4)
	require.NoError(t, err)
	assert.Equal(t, "SimpleEstimator", est.Name())
	assert.Equal(t, map[string]any{"complexity_constant": 4}, est.Details())
}
