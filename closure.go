package hazel

import (
	"context"
	"fmt"
)

// EnsureReflexiveClosure records the (id, id) self-pair for a freshly
// registered entity so ancestor/descendant sets are inclusive of the
// node itself from the moment it exists, before it has any edges.
func EnsureReflexiveClosure(ctx context.Context, db Execer, kind Kind, id int64) error {
	const q = `
		INSERT INTO hazel_closure (kind, ancestor_id, descendant_id)
		VALUES ($1, $2, $2)
		ON CONFLICT DO NOTHING`
	if _, err := db.ExecContext(ctx, q, string(kind), id); err != nil {
		return fmt.Errorf("seeding reflexive closure for %s id %d: %w", kind, id, err)
	}
	return nil
}

// ExtendClosureForEdge incrementally extends the transitive closure
// after inserting the edge parent_id -> child_id: every ancestor of
// parent (inclusive) gains reachability to every descendant of child
// (inclusive). This is the "closure table updated in-step with edge
// mutations" approach spec section 4.3 names as the reference
// implementation; diamond merges are handled for free because
// duplicates collapse onto the (kind, ancestor_id, descendant_id)
// primary key.
func ExtendClosureForEdge(ctx context.Context, db Execer, kind Kind, parentID, childID int64) error {
	const q = `
		INSERT INTO hazel_closure (kind, ancestor_id, descendant_id)
		SELECT $1, a.ancestor_id, d.descendant_id
		FROM hazel_closure a
		CROSS JOIN hazel_closure d
		WHERE a.kind = $1 AND a.descendant_id = $2
		  AND d.kind = $1 AND d.ancestor_id = $3
		ON CONFLICT DO NOTHING`
	if _, err := db.ExecContext(ctx, q, string(kind), parentID, childID); err != nil {
		return fmt.Errorf("extending %s closure for edge %d->%d: %w", kind, parentID, childID, err)
	}
	return nil
}

// RebuildClosure recomputes the entire transitive closure for kind from
// the current hazel_edges rows. Used after edge removal: removing an
// edge can invalidate closure pairs that depended on it, but other paths
// may still justify them, so the safe and simple approach is a full
// recompute for that kind rather than trying to prove which pairs
// survive. This runs a single recursive query, not one per decision, so
// it does not violate the "no recursion on the decision path" contract.
func RebuildClosure(ctx context.Context, db Execer, kind Kind) error {
	const del = `DELETE FROM hazel_closure WHERE kind = $1`
	if _, err := db.ExecContext(ctx, del, string(kind)); err != nil {
		return fmt.Errorf("clearing %s closure: %w", kind, err)
	}

	const ins = `
		INSERT INTO hazel_closure (kind, ancestor_id, descendant_id)
		WITH RECURSIVE reach(ancestor_id, descendant_id) AS (
			SELECT id, id FROM hazel_entities WHERE kind = $1
			UNION
			SELECT r.ancestor_id, e.child_id
			FROM reach r
			JOIN hazel_edges e ON e.kind = $1 AND e.parent_id = r.descendant_id
		)
		SELECT $1, ancestor_id, descendant_id FROM reach`
	if _, err := db.ExecContext(ctx, ins, string(kind)); err != nil {
		return fmt.Errorf("rebuilding %s closure: %w", kind, err)
	}
	return nil
}

// IsAncestor reports whether ancestorID can reach descendantID via
// parent edges (inclusive of ancestorID == descendantID).
func IsAncestor(ctx context.Context, db Querier, kind Kind, ancestorID, descendantID int64) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM hazel_closure
			WHERE kind = $1 AND ancestor_id = $2 AND descendant_id = $3
		)`
	var ok bool
	if err := db.QueryRowContext(ctx, q, string(kind), ancestorID, descendantID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking %s reachability %d->%d: %w", kind, ancestorID, descendantID, err)
	}
	return ok, nil
}

// Ancestors returns the surrogate ids of every node reachable from id by
// following parent edges, including id itself.
func Ancestors(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return closureIDs(ctx, db, `SELECT ancestor_id FROM hazel_closure WHERE kind = $1 AND descendant_id = $2`, kind, id)
}

// Descendants returns the surrogate ids of every node reachable from id
// by following child edges, including id itself.
func Descendants(ctx context.Context, db Querier, kind Kind, id int64) ([]int64, error) {
	return closureIDs(ctx, db, `SELECT descendant_id FROM hazel_closure WHERE kind = $1 AND ancestor_id = $2`, kind, id)
}

func closureIDs(ctx context.Context, db Querier, q string, kind Kind, id int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, q, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("querying %s closure for id %d: %w", kind, id, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var other int64
		if err := rows.Scan(&other); err != nil {
			return nil, fmt.Errorf("scanning %s closure row: %w", kind, err)
		}
		ids = append(ids, other)
	}
	return ids, rows.Err()
}
