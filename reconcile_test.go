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

func writeDeclarations(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decl.yaml"), []byte(content), 0o644))
}

func TestReconcile_OrphanSweepRemovesUndeclaredStaticEntityButNotDynamic(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)
	eng := hazel.NewEngine(db)

	dir := t.TempDir()
	writeDeclarations(t, dir, `
roles:
  - ext_id: admin
    description: Administrator
  - ext_id: moderator
    description: Moderator
`)
	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))

	// A dynamically registered subject must survive reconciliation even
	// though it's not declared anywhere.
	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))

	require.True(t, entityExists(t, db, hazel.Subject, "moderator"))

	// Drop "moderator" from the declaration set and reconcile again.
	writeDeclarations(t, dir, `
roles:
  - ext_id: admin
    description: Administrator
`)
	src, err = declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))

	require.False(t, entityExists(t, db, hazel.Subject, "moderator"), "undeclared static role should be swept")
	require.True(t, entityExists(t, db, hazel.Subject, "alice"), "dynamic entity must never be touched by reconcile")
}

func TestReconcile_RoleImplicationWiresEdgeFromImpliedToDeclared(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)
	eng := hazel.NewEngine(db)

	dir := t.TempDir()
	writeDeclarations(t, dir, `
roles:
  - ext_id: users
    description: Users
  - ext_id: admin
    description: Administrator
    implied_ext_ids: ["users"]
`)
	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))

	members, err := eng.Members(ctx, hazel.Subject, "users")
	require.NoError(t, err)
	require.Contains(t, members, "admin")
}

func TestReconcile_RoleWithNoImpliedRolesKeepsSupremumParent(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)
	eng := hazel.NewEngine(db)

	dir := t.TempDir()
	writeDeclarations(t, dir, `
roles:
  - ext_id: moderator
    description: Moderator
`)
	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))
	require.NoError(t, eng.Reconcile(ctx, src), "reconcile must be idempotent")

	// A blanket grant on the subject/object supremum must still cover a
	// role declared with no implied_ext_ids: that role's only parent is
	// the supremum itself, and reconciliation must never strip it away.
	require.NoError(t, eng.RegisterObject(ctx, "doc-1", "Document One", false))
	require.NoError(t, eng.RegisterPermission(ctx, "read", "Read", false))
	require.NoError(t, eng.Grant(ctx, hazel.SupremumExtID, "doc-1", "read"))

	d, err := eng.PermissionGranted(ctx, "moderator", "doc-1", "read")
	require.NoError(t, err)
	require.Equal(t, hazel.Granted, d)

	members, err := eng.Members(ctx, hazel.Subject, hazel.SupremumExtID)
	require.NoError(t, err)
	require.Contains(t, members, "moderator")
}

func TestReconcile_CollectionWithNoParentsKeepsSupremumParent(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)
	eng := hazel.NewEngine(db)

	dir := t.TempDir()
	writeDeclarations(t, dir, `
collections:
  - ext_id: project-1
    description: Project One
`)
	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))
	require.NoError(t, eng.Reconcile(ctx, src), "reconcile must be idempotent")

	require.NoError(t, eng.RegisterSubject(ctx, "alice", "Alice", false))
	require.NoError(t, eng.RegisterPermission(ctx, "read", "Read", false))
	require.NoError(t, eng.Grant(ctx, "alice", hazel.SupremumExtID, "read"))

	d, err := eng.PermissionGranted(ctx, "alice", "project-1", "read")
	require.NoError(t, err)
	require.Equal(t, hazel.Granted, d)
}

func TestReconcile_OrphanSweepRebuildsClosureAcrossDeletedIntermediary(t *testing.T) {
	ctx := context.Background()
	db := testutil.Store(t)
	eng := hazel.NewEngine(db)

	dir := t.TempDir()
	writeDeclarations(t, dir, `
roles:
  - ext_id: admin
    description: Administrator
  - ext_id: manager
    description: Manager
    implied_ext_ids: ["admin"]
  - ext_id: employee
    description: Employee
    implied_ext_ids: ["manager"]
`)
	src, err := declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))

	// admin -> manager -> employee gives a transitive (admin, employee)
	// closure row that references neither endpoint's deletion target.
	members, err := eng.Members(ctx, hazel.Subject, "admin")
	require.NoError(t, err)
	require.Contains(t, members, "employee")

	// Remove "manager" from the declarations; "admin" and "employee"
	// survive but are no longer connected through it.
	writeDeclarations(t, dir, `
roles:
  - ext_id: admin
    description: Administrator
  - ext_id: employee
    description: Employee
`)
	src, err = declare.LoadYAMLDir(dir)
	require.NoError(t, err)
	require.NoError(t, eng.Reconcile(ctx, src))

	require.False(t, entityExists(t, db, hazel.Subject, "manager"))
	members, err = eng.Members(ctx, hazel.Subject, "admin")
	require.NoError(t, err)
	require.NotContains(t, members, "employee", "stale transitive closure must not outlive the deleted intermediary")
}

func entityExists(t *testing.T, db hazel.Store, kind hazel.Kind, extID string) bool {
	t.Helper()
	ok, err := hazel.ExistsEntity(context.Background(), db, kind, extID)
	require.NoError(t, err)
	return ok
}
