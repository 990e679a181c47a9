package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dealflow/dealflow-api/internal/apperr"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=5"`
	Score *int   `json:"score" validate:"required,min=0,max=100"`
	Kind  string `json:"kind" validate:"omitempty,oneof=open won lost"`
}

func intp(v int) *int { return &v }

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "ok", Score: intp(0)}))

	tests := []struct {
		name string
		in   sample
		msg  string
	}{
		{"missing name", sample{Score: intp(1)}, "name is required"},
		{"long name", sample{Name: "toolong", Score: intp(1)}, "name must be at most 5 characters"},
		{"nil score", sample{Name: "a"}, "score is required"},
		{"score high", sample{Name: "a", Score: intp(101)}, "score must be <= 100"},
		{"bad kind", sample{Name: "a", Score: intp(1), Kind: "maybe"}, "kind must be one of [open won lost]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			require.ErrorIs(t, err, apperr.ErrValidation)
			require.Equal(t, tt.msg, apperr.Message(err))
		})
	}
}
