package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triplestore/internal/value"
)

func TestCompileScalarTopLevelEmitsEqFilter(t *testing.T) {
	plan, err := Compile("str:hello", value.KindStatement, "", 50)
	require.NoError(t, err)

	require.Len(t, plan.Filters, 1)
	assert.Equal(t, "main", plan.Filters[0].Entity)
	assert.Equal(t, value.OpEq, plan.Filters[0].Op)
	assert.Equal(t, "hello", plan.Filters[0].Value.Str)
}

func TestCompileFilterKeyword(t *testing.T) {
	node := map[string]any{"gt": "int:10"}
	plan, err := Compile(node, value.KindStatement, "", 50)
	require.NoError(t, err)

	require.Len(t, plan.Filters, 1)
	assert.Equal(t, value.OpGt, plan.Filters[0].Op)
	assert.Equal(t, int64(10), plan.Filters[0].Value.Integer)
}

func TestCompileDescriptorCreatesJoinEntity(t *testing.T) {
	predHandle := value.NewStatementHandle()
	key := "match_object." + value.HandleString(predHandle)
	node := map[string]any{key: "str:world"}

	plan, err := Compile(node, value.KindStatement, "", 50)
	require.NoError(t, err)

	require.Len(t, plan.Entities, 2) // main + one joined alias
	var joined *JoinEntity
	for alias, e := range plan.Entities {
		if alias != "main" {
			joined = e
		}
	}
	require.NotNil(t, joined)
	assert.Equal(t, DirForward, joined.Descriptor.Direction)
	require.NotNil(t, joined.Descriptor.Predicate)
	assert.Equal(t, predHandle, *joined.Descriptor.Predicate)

	require.Len(t, plan.Filters, 1)
	assert.Equal(t, joined.Alias, plan.Filters[0].Entity)
}

func TestCompileAnyPredicateWildcard(t *testing.T) {
	node := map[string]any{"match_subject.*": map[string]any{"sort": nil}}
	plan, err := Compile(node, value.KindStatement, "", 50)
	require.NoError(t, err)

	var joined *JoinEntity
	for alias, e := range plan.Entities {
		if alias != "main" {
			joined = e
		}
	}
	require.NotNil(t, joined)
	assert.Nil(t, joined.Descriptor.Predicate)
	assert.Equal(t, DirReverse, joined.Descriptor.Direction)
	require.Len(t, plan.Orders, 1)
	assert.False(t, plan.Orders[0].Desc)
}

func TestCompileEmptyInListPreserved(t *testing.T) {
	node := map[string]any{"in": []any{}}
	plan, err := Compile(node, value.KindStatement, "", 50)
	require.NoError(t, err)

	require.Len(t, plan.Filters, 1)
	assert.Equal(t, value.OpIn, plan.Filters[0].Op)
	assert.Empty(t, plan.Filters[0].Values)
}

func TestCompileFetchDescriptorRecorded(t *testing.T) {
	node := map[string]any{"fetch_object.*": map[string]any{}}
	plan, err := Compile(node, value.KindStatement, "", 50)
	require.NoError(t, err)

	require.Len(t, plan.Fetches, 1)
	fetched := plan.Entities[plan.Fetches[0]]
	assert.True(t, fetched.Descriptor.Direction.IsFetchOnly())
}

func TestCompileUnknownKeyIsQueryShapeError(t *testing.T) {
	node := map[string]any{"not_a_real_key": "str:x"}
	_, err := Compile(node, value.KindStatement, "", 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryShape)
}

func TestRoleColumnsForwardFromRoot(t *testing.T) {
	lhs, rhs, err := RoleColumns(Descriptor{Direction: DirForward}, true, false)
	require.NoError(t, err)
	assert.Equal(t, "subject_id", lhs)
	assert.Equal(t, "id", rhs)
}

func TestRoleColumnsReverseFromBlobRoot(t *testing.T) {
	lhs, rhs, err := RoleColumns(Descriptor{Direction: DirReverse}, true, true)
	require.NoError(t, err)
	assert.Equal(t, string(value.ColumnObjectBlob), lhs)
	assert.Equal(t, "id", rhs)
}

func TestRoleColumnsForwardNonRoot(t *testing.T) {
	lhs, rhs, err := RoleColumns(Descriptor{Direction: DirForward}, false, false)
	require.NoError(t, err)
	assert.Equal(t, "subject_id", lhs)
	assert.Equal(t, string(value.ColumnObjectStatement), rhs)
}
