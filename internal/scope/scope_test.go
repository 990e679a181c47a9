package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolve(t *testing.T) {
	caller := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name     string
		role     string
		explicit string
		want     *primitive.ObjectID
	}{
		{"admin without filter sees all", "admin", "", nil},
		{"manager honors explicit owner", "manager", other.Hex(), &other},
		{"admin role is case-insensitive", "ADMIN", other.Hex(), &other},
		{"malformed owner is ignored for elevated", "admin", "not-hex", nil},
		{"rep is pinned to self", "rep", "", &caller},
		{"rep cannot widen to another owner", "rep", other.Hex(), &caller},
		{"empty role is not elevated", "", other.Hex(), &caller},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.role, caller, tt.explicit)
			if tt.want == nil {
				require.False(t, got.Restricted())
				require.Equal(t, "all", got.Key())
				return
			}
			require.True(t, got.Restricted())
			require.Equal(t, *tt.want, *got.OwnerID)
			require.Equal(t, tt.want.Hex(), got.Key())
		})
	}
}

func TestCanModify(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.True(t, CanModify("rep", a, a))
	require.False(t, CanModify("rep", a, b))
	require.True(t, CanModify("manager", a, b))
}
