package hazel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertEntity inserts a new entity or, on an (kind, ext_id) collision,
// updates its description and static flag in place (spec section 4.2
// upsert semantics). Returns the row's surrogate id.
func UpsertEntity(ctx context.Context, db Execer, kind Kind, extID, description string, static bool) (int64, error) {
	const q = `
		INSERT INTO hazel_entities (kind, ext_id, description, static)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, ext_id) DO UPDATE
			SET description = EXCLUDED.description,
			    static = EXCLUDED.static
		RETURNING id`

	var id int64
	err := db.QueryRowContext(ctx, q, string(kind), extID, description, static).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting %s entity %q: %w", kind, extID, err)
	}
	if err := EnsureReflexiveClosure(ctx, db, kind, id); err != nil {
		return 0, err
	}
	return id, nil
}

// LookupEntity resolves an external id within a kind to its full row.
// Returns ErrNotFound (wrapped) if absent.
func LookupEntity(ctx context.Context, db Querier, kind Kind, extID string) (Entity, error) {
	const q = `
		SELECT id, ext_id, description, static
		FROM hazel_entities
		WHERE kind = $1 AND ext_id = $2`

	var e Entity
	e.Kind = kind
	err := db.QueryRowContext(ctx, q, string(kind), extID).Scan(&e.InternalID, &e.ExtID, &e.Description, &e.Static)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, fmt.Errorf("%s %q: %w", kind, extID, sql.ErrNoRows)
	}
	if err != nil {
		return Entity{}, fmt.Errorf("looking up %s %q: %w", kind, extID, err)
	}
	return e, nil
}

// LookupEntityByID resolves a surrogate id to its full row.
func LookupEntityByID(ctx context.Context, db Querier, kind Kind, id int64) (Entity, error) {
	const q = `
		SELECT id, ext_id, description, static
		FROM hazel_entities
		WHERE kind = $1 AND id = $2`

	var e Entity
	e.Kind = kind
	err := db.QueryRowContext(ctx, q, string(kind), id).Scan(&e.InternalID, &e.ExtID, &e.Description, &e.Static)
	if err != nil {
		return Entity{}, fmt.Errorf("looking up %s id %d: %w", kind, id, err)
	}
	return e, nil
}

// ExistsEntity reports whether an external id is registered within a kind.
func ExistsEntity(ctx context.Context, db Querier, kind Kind, extID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM hazel_entities WHERE kind = $1 AND ext_id = $2)`

	var exists bool
	if err := db.QueryRowContext(ctx, q, string(kind), extID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking existence of %s %q: %w", kind, extID, err)
	}
	return exists, nil
}

// EnsureSupremum guarantees the distinguished "*" row exists for kind,
// creating it as a static row if absent. Returns its surrogate id.
func EnsureSupremum(ctx context.Context, db Execer, kind Kind) (int64, error) {
	return UpsertSupremumAware(ctx, db, kind)
}

// UpsertSupremumAware upserts the supremum with a fixed description,
// idempotently, without disturbing an existing supremum's static flag if
// it was already registered some other way.
func UpsertSupremumAware(ctx context.Context, db Execer, kind Kind) (int64, error) {
	const q = `
		INSERT INTO hazel_entities (kind, ext_id, description, static)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (kind, ext_id) DO UPDATE SET ext_id = EXCLUDED.ext_id
		RETURNING id`

	var id int64
	err := db.QueryRowContext(ctx, q, string(kind), SupremumExtID, fmt.Sprintf("%s supremum", kind)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensuring %s supremum: %w", kind, err)
	}
	if err := EnsureReflexiveClosure(ctx, db, kind, id); err != nil {
		return 0, err
	}
	return id, nil
}

// EnsureChildOfSupremum wires a supremum -> id edge within kind unless
// one already exists, implementing the registration-time supremum
// invariant (spec section 4.2: "every newly registered entity becomes a
// direct child of its supremum"). A no-op for the supremum's own row.
func EnsureChildOfSupremum(ctx context.Context, db Execer, kind Kind, id int64, static bool) error {
	supremumID, err := EnsureSupremum(ctx, db, kind)
	if err != nil {
		return err
	}
	if id == supremumID {
		return nil
	}
	if err := AddEdge(ctx, db, kind, supremumID, id, static); err != nil && !IsKind(err, ErrCyclicEdge) {
		return err
	}
	return nil
}

// CountEntities returns the number of entities registered within kind,
// used by the "hazel status" command to summarize each DAG's size.
func CountEntities(ctx context.Context, db Querier, kind Kind) (int, error) {
	const q = `SELECT COUNT(*) FROM hazel_entities WHERE kind = $1`

	var n int
	if err := db.QueryRowContext(ctx, q, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s entities: %w", kind, err)
	}
	return n, nil
}

// DeleteEntity removes a single entity row by surrogate id. Edges and
// rules referencing it are removed by ON DELETE CASCADE.
func DeleteEntity(ctx context.Context, db Execer, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM hazel_entities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting entity id %d: %w", id, err)
	}
	return nil
}

// StaticExtIDsNotIn returns the surrogate ids of every static entity of
// kind whose ext_id is not present in keep. Used by the reconciler's
// orphan sweep (spec section 4.6 phase 2).
func StaticExtIDsNotIn(ctx context.Context, db Querier, kind Kind, keep []string) ([]int64, error) {
	const q = `
		SELECT id FROM hazel_entities
		WHERE kind = $1 AND static = true AND ext_id <> $2 AND NOT (ext_id = ANY($3))`

	rows, err := db.QueryContext(ctx, q, string(kind), SupremumExtID, pqStringArray(keep))
	if err != nil {
		return nil, fmt.Errorf("listing orphaned static %s entities: %w", kind, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning orphaned %s entity: %w", kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
