package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triplestore/internal/query"
	"triplestore/internal/value"
)

func TestMaterializeOrderRespectsParentBeforeChild(t *testing.T) {
	plan, err := query.Compile(map[string]any{
		"match_object.*": map[string]any{
			"match_object.*": map[string]any{"eq": "int:1"},
		},
	}, value.KindStatement, "", 10)
	require.NoError(t, err)

	order, err := materializeOrder(plan)
	require.NoError(t, err)
	require.Len(t, order, 2)

	placed := map[string]bool{"main": true}
	for _, alias := range order {
		parent := plan.Entities[alias].Parent
		assert.True(t, placed[parent], "parent %q of %q must already be placed", parent, alias)
		placed[alias] = true
	}
}

func TestBuildConditionEmptyInIsFalseLiteral(t *testing.T) {
	args := &argList{}
	cond, err := buildCondition(query.Filter{Entity: "main", Op: value.OpIn, Values: nil}, args)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", cond)
	assert.Empty(t, args.args)
}

func TestBuildConditionEq(t *testing.T) {
	args := &argList{}
	cond, err := buildCondition(query.Filter{Entity: "main", Op: value.OpEq, Value: value.FromInteger(7)}, args)
	require.NoError(t, err)
	assert.Equal(t, "main.object_integer = $1", cond)
	require.Len(t, args.args, 1)
	assert.Equal(t, int64(7), args.args[0])
}

func TestBuildConditionContainsUsesLike(t *testing.T) {
	args := &argList{}
	cond, err := buildCondition(query.Filter{Entity: "e_a", Op: value.OpContains, Value: value.FromString("mid")}, args)
	require.NoError(t, err)
	assert.Equal(t, "e_a.object_string LIKE '%' || $1 || '%'", cond)
}
