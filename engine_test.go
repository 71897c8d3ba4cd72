//go:build integration

package hazel_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/declare"
	"github.com/hazelgraph/hazel/internal/testutil"
)

func newEngine(t *testing.T) *hazel.Engine {
	t.Helper()
	return hazel.NewEngine(testutil.Store(t))
}

func TestEngine_RegisterAndGrant(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.RegisterObject(ctx, "doc-1", "Document One", false))
	require.NoError(t, eng.RegisterPermission(ctx, "edit", "Edit", false))

	d, err := eng.PermissionGranted(ctx, "alice", "doc-1", "edit")
	require.NoError(t, err)
	require.Equal(t, hazel.Denied, d)

	require.NoError(t, eng.Grant(ctx, "alice", "doc-1", "edit"))

	d, err = eng.PermissionGranted(ctx, "alice", "doc-1", "edit")
	require.NoError(t, err)
	require.Equal(t, hazel.Granted, d)
}

func TestEngine_GrantIdempotentConflictingSignRejected(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.RegisterObject(ctx, "doc-1", "Document One", false))
	require.NoError(t, eng.RegisterPermission(ctx, "edit", "Edit", false))

	require.NoError(t, eng.Grant(ctx, "alice", "doc-1", "edit"))
	require.NoError(t, eng.Grant(ctx, "alice", "doc-1", "edit"))

	err := eng.Deny(ctx, "alice", "doc-1", "edit")
	require.Error(t, err)
	require.True(t, hazel.IsKind(err, hazel.ErrConflictingRuleType))
}

func TestEngine_RevokeThenAllowOppositeSignSucceeds(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.RegisterObject(ctx, "doc-1", "Document One", false))
	require.NoError(t, eng.RegisterPermission(ctx, "edit", "Edit", false))

	require.NoError(t, eng.Grant(ctx, "alice", "doc-1", "edit"))
	require.NoError(t, eng.Revoke(ctx, "alice", "doc-1", "edit"))
	require.NoError(t, eng.Deny(ctx, "alice", "doc-1", "edit"))

	d, err := eng.PermissionGranted(ctx, "alice", "doc-1", "edit")
	require.NoError(t, err)
	require.Equal(t, hazel.Denied, d)
}

func TestEngine_AddChildRejectsCycle(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "admin", "Admin", false))
	require.NoError(t, eng.RegisterSubject(ctx, "editor", "Editor", false))
	require.NoError(t, eng.AddChild(ctx, hazel.Subject, "admin", "editor"))

	err := eng.AddChild(ctx, hazel.Subject, "editor", "admin")
	require.Error(t, err)
	require.True(t, hazel.IsKind(err, hazel.ErrCyclicEdge))

	err = eng.AddChild(ctx, hazel.Subject, "admin", "admin")
	require.Error(t, err)
	require.True(t, hazel.IsKind(err, hazel.ErrCyclicEdge))
}

func TestEngine_MembersListsDescendantsExcludingSelf(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "admin", "Admin", false))
	require.NoError(t, eng.RegisterSubject(ctx, "editor", "Editor", false))
	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.AddChild(ctx, hazel.Subject, "admin", "editor"))
	require.NoError(t, eng.AddChild(ctx, hazel.Subject, "editor", "alice"))

	members, err := eng.Members(ctx, hazel.Subject, "admin")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"editor", "alice"}, members)
}

func TestEngine_ListRulesBySubjectAndObject(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.RegisterObject(ctx, "doc-1", "Document One", false))
	require.NoError(t, eng.RegisterPermission(ctx, "edit", "Edit", false))
	require.NoError(t, eng.Grant(ctx, "alice", "doc-1", "edit"))

	bySubject, err := eng.ListRules(ctx, hazel.Subject, "alice")
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	require.Equal(t, "doc-1", bySubject[0].ObjectExtID)
	require.Equal(t, hazel.Positive, bySubject[0].Sign)

	byObject, err := eng.ListRules(ctx, hazel.Object, "doc-1")
	require.NoError(t, err)
	require.Len(t, byObject, 1)
	require.Equal(t, "alice", byObject[0].SubjectExtID)
}

func TestEngine_ReconcileConvergesStaticStateAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	dir := t.TempDir()
	yamlContent := `
privileges:
  - ext_id: edit
    description: Edit
  - ext_id: view
    description: View
    implied_ext_ids: []
roles:
  - ext_id: admin
    description: Administrator
    implied_ext_ids: []
collections:
  - ext_id: project-1
    description: Project One
rules:
  - subject_ext_id: admin
    object_ext_id: project-1
    privilege_ext_id: edit
    sign: "+"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(yamlContent), 0o644))

	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)

	require.NoError(t, eng.Reconcile(ctx, src))
	require.NoError(t, eng.Reconcile(ctx, src), "reconcile must be idempotent")

	d, err := eng.PermissionGranted(ctx, "admin", "project-1", "edit")
	require.NoError(t, err)
	require.Equal(t, hazel.Granted, d)
}
