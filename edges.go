package hazel

import (
	"context"
	"fmt"
)

// AddEdge inserts the parent_id -> child_id edge for kind and extends the
// closure table to match, rejecting self-loops and edges that would close
// a cycle. static marks edges created by reconciliation so the orphan
// sweep can distinguish them from dynamically added ones (spec section
// 4.6); Engine.AddChild always passes static=false, while registration
// passes its own static flag through EnsureChildOfSupremum.
//
// Cycle detection relies on the closure table rather than a fresh
// traversal: parent_id -> child_id would create a cycle exactly when
// child_id already reaches parent_id, i.e. parent_id is already in
// child_id's descendant set.
func AddEdge(ctx context.Context, db Execer, kind Kind, parentID, childID int64, static bool) error {
	if parentID == childID {
		return NewError(ErrCyclicEdge, fmt.Sprintf("%s edge %d->%d is a self-loop", kind, parentID, childID))
	}

	wouldCycle, err := IsAncestor(ctx, db, kind, childID, parentID)
	if err != nil {
		return err
	}
	if wouldCycle {
		return NewError(ErrCyclicEdge, fmt.Sprintf("%s edge %d->%d would close a cycle", kind, parentID, childID))
	}

	const q = `
		INSERT INTO hazel_edges (kind, parent_id, child_id, static)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, parent_id, child_id) DO UPDATE SET static = EXCLUDED.static`
	if _, err := db.ExecContext(ctx, q, string(kind), parentID, childID, static); err != nil {
		return fmt.Errorf("inserting %s edge %d->%d: %w", kind, parentID, childID, err)
	}

	return ExtendClosureForEdge(ctx, db, kind, parentID, childID)
}

// RemoveEdge deletes the parent_id -> child_id edge for kind and rebuilds
// the kind's closure table from the remaining edges, since other paths
// may still justify closure pairs the removed edge contributed to.
func RemoveEdge(ctx context.Context, db Execer, kind Kind, parentID, childID int64) error {
	const q = `DELETE FROM hazel_edges WHERE kind = $1 AND parent_id = $2 AND child_id = $3`
	if _, err := db.ExecContext(ctx, q, string(kind), parentID, childID); err != nil {
		return fmt.Errorf("deleting %s edge %d->%d: %w", kind, parentID, childID, err)
	}
	return RebuildClosure(ctx, db, kind)
}

// Parents returns the surrogate ids of id's direct (non-transitive)
// parents within kind.
func Parents(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return edgeIDs(ctx, db, `SELECT parent_id FROM hazel_edges WHERE kind = $1 AND child_id = $2`, kind, id)
}

// Children returns the surrogate ids of id's direct (non-transitive)
// children within kind.
func Children(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return edgeIDs(ctx, db, `SELECT child_id FROM hazel_edges WHERE kind = $1 AND parent_id = $2`, kind, id)
}

// StaticParents returns the direct parents of id within kind restricted
// to static edges, used by the reconciler to diff declared edges against
// persisted ones without disturbing dynamically added ones.
func StaticParents(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return edgeIDs(ctx, db, `SELECT parent_id FROM hazel_edges WHERE kind = $1 AND child_id = $2 AND static = true`, kind, id)
}

// StaticChildren returns the direct children of id within kind
// restricted to static edges, the child-side counterpart to
// StaticParents used for privilege declarations (which point downward).
func StaticChildren(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return edgeIDs(ctx, db, `SELECT child_id FROM hazel_edges WHERE kind = $1 AND parent_id = $2 AND static = true`, kind, id)
}

func edgeIDs(ctx context.Context, db Querier, q string, kind Kind, id int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, q, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("querying %s edges for id %d: %w", kind, id, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var other int64
		if err := rows.Scan(&other); err != nil {
			return nil, fmt.Errorf("scanning %s edge row: %w", kind, err)
		}
		ids = append(ids, other)
	}
	return ids, rows.Err()
}
