//go:build integration

package hazel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/testutil"
)

func TestUpsertEntity_CollisionUpdatesDescriptionAndStatic(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	id1, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "first", false)
	require.NoError(t, err)

	id2, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "second", true)
	require.NoError(t, err)
	require.Equal(t, id1, id2, "upsert on an existing ext_id must return the same surrogate id")

	e, err := hazel.LookupEntity(ctx, db, hazel.Subject, "alice")
	require.NoError(t, err)
	require.Equal(t, "second", e.Description)
	require.True(t, e.Static)
}

func TestEnsureChildOfSupremum_WiresEdgeAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	id, err := hazel.UpsertEntity(ctx, db, hazel.Object, "doc-1", "doc", false)
	require.NoError(t, err)

	require.NoError(t, hazel.EnsureChildOfSupremum(ctx, db, hazel.Object, id, false))
	require.NoError(t, hazel.EnsureChildOfSupremum(ctx, db, hazel.Object, id, false))

	supremum, err := hazel.LookupEntity(ctx, db, hazel.Object, hazel.SupremumExtID)
	require.NoError(t, err)

	ancestors, err := hazel.Ancestors(ctx, db, hazel.Object, id)
	require.NoError(t, err)
	require.Contains(t, ancestors, supremum.InternalID)
}

func TestAddEdge_ExtendsClosureTransitively(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	admin, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "admin", "Admin", false)
	require.NoError(t, err)
	editor, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "editor", "Editor", false)
	require.NoError(t, err)
	alice, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "Alice", false)
	require.NoError(t, err)

	require.NoError(t, hazel.AddEdge(ctx, db, hazel.Subject, admin, editor, false))
	require.NoError(t, hazel.AddEdge(ctx, db, hazel.Subject, editor, alice, false))

	ancestorsOfAlice, err := hazel.Ancestors(ctx, db, hazel.Subject, alice)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{alice, editor, admin}, ancestorsOfAlice)

	descendantsOfAdmin, err := hazel.Descendants(ctx, db, hazel.Subject, admin)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{admin, editor, alice}, descendantsOfAdmin)
}

func TestAddEdge_RejectsSelfLoopAndCycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	a, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "a", "a", false)
	require.NoError(t, err)
	b, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "b", "b", false)
	require.NoError(t, err)

	err = hazel.AddEdge(ctx, db, hazel.Subject, a, a, false)
	require.True(t, hazel.IsKind(err, hazel.ErrCyclicEdge))

	require.NoError(t, hazel.AddEdge(ctx, db, hazel.Subject, a, b, false))
	err = hazel.AddEdge(ctx, db, hazel.Subject, b, a, false)
	require.True(t, hazel.IsKind(err, hazel.ErrCyclicEdge))
}

func TestRemoveEdge_RebuildsClosure(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	admin, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "admin", "Admin", false)
	require.NoError(t, err)
	editor, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "editor", "Editor", false)
	require.NoError(t, err)
	alice, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "Alice", false)
	require.NoError(t, err)

	require.NoError(t, hazel.AddEdge(ctx, db, hazel.Subject, admin, editor, false))
	require.NoError(t, hazel.AddEdge(ctx, db, hazel.Subject, editor, alice, false))
	require.NoError(t, hazel.RemoveEdge(ctx, db, hazel.Subject, admin, editor))

	ancestorsOfAlice, err := hazel.Ancestors(ctx, db, hazel.Subject, alice)
	require.NoError(t, err)
	require.NotContains(t, ancestorsOfAlice, admin)
	require.Contains(t, ancestorsOfAlice, editor)
}

func TestPutRule_SameSignIsIdempotentOppositeSignConflicts(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	s, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "Alice", false)
	require.NoError(t, err)
	o, err := hazel.UpsertEntity(ctx, db, hazel.Object, "doc-1", "Doc", false)
	require.NoError(t, err)
	p, err := hazel.UpsertEntity(ctx, db, hazel.Privilege, "edit", "Edit", false)
	require.NoError(t, err)

	require.NoError(t, hazel.PutRule(ctx, db, s, o, p, hazel.Positive, false))
	require.NoError(t, hazel.PutRule(ctx, db, s, o, p, hazel.Positive, false))

	err = hazel.PutRule(ctx, db, s, o, p, hazel.Negative, false)
	require.True(t, hazel.IsKind(err, hazel.ErrConflictingRuleType))

	require.NoError(t, hazel.DropRuleWithSign(ctx, db, s, o, p, hazel.Positive))
	require.NoError(t, hazel.PutRule(ctx, db, s, o, p, hazel.Negative, false))
}

func TestListRulesBySubject_FiltersByLeg(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)

	s, err := hazel.UpsertEntity(ctx, db, hazel.Subject, "alice", "Alice", false)
	require.NoError(t, err)
	o1, err := hazel.UpsertEntity(ctx, db, hazel.Object, "doc-1", "Doc1", false)
	require.NoError(t, err)
	o2, err := hazel.UpsertEntity(ctx, db, hazel.Object, "doc-2", "Doc2", false)
	require.NoError(t, err)
	p, err := hazel.UpsertEntity(ctx, db, hazel.Privilege, "edit", "Edit", false)
	require.NoError(t, err)

	require.NoError(t, hazel.PutRule(ctx, db, s, o1, p, hazel.Positive, false))
	require.NoError(t, hazel.PutRule(ctx, db, s, o2, p, hazel.Negative, false))

	views, err := hazel.ListRulesBySubject(ctx, db, s)
	require.NoError(t, err)
	require.Len(t, views, 2)
}
