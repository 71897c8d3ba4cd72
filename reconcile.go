package hazel

import (
	"context"
	"fmt"

	"github.com/hazelgraph/hazel/internal/declare"
)

// Reconcile runs the five-phase declaration reconciler from spec section
// 4.6: converging persisted static state (entities, edges, rules) to
// match a declared specification on every process start, without ever
// touching dynamic (static = false) rows created by the runtime API.
//
// It runs inside a single transaction guarded by the engine's fixed
// advisory lock, so a concurrent rule put or another reconciliation run
// serializes against this one even on a backend that can't offer
// serializable isolation.
func Reconcile(ctx context.Context, st Store, src declare.Source) error {
	return st.AdvisoryLock(ctx, EngineAdvisoryLockKey, func(ctx context.Context, tx Tx) error {
		return runReconcile(ctx, tx, src)
	})
}

func runReconcile(ctx context.Context, tx Tx, src declare.Source) error {
	if err := ensureSupremums(ctx, tx); err != nil {
		return fmt.Errorf("phase 1 (ensure supremums): %w", err)
	}

	declaredSubjectExtIDs, declaredObjectExtIDs, declaredPrivilegeExtIDs := declaredExtIDSets(src)

	if err := orphanSweep(ctx, tx, declaredSubjectExtIDs, declaredObjectExtIDs, declaredPrivilegeExtIDs); err != nil {
		return fmt.Errorf("phase 2 (orphan sweep): %w", err)
	}

	if err := registerDeclaredEntities(ctx, tx, src); err != nil {
		return fmt.Errorf("phase 3 (register declared entities): %w", err)
	}

	if err := rebuildStaticRules(ctx, tx, src); err != nil {
		return fmt.Errorf("phase 4 (rebuild static rules): %w", err)
	}

	if err := reconcileEdges(ctx, tx, src); err != nil {
		return fmt.Errorf("phase 5 (reconcile edges): %w", err)
	}

	return nil
}

func ensureSupremums(ctx context.Context, tx Tx) error {
	for _, kind := range []Kind{Subject, Object, Privilege} {
		if _, err := EnsureSupremum(ctx, tx, kind); err != nil {
			return err
		}
	}
	return nil
}

// declaredExtIDSets computes, per kind, the set of external ids that
// should survive the orphan sweep: roles contribute to both subject and
// object, privileges to privilege, collections to object only.
func declaredExtIDSets(src declare.Source) (subjects, objects, privileges []string) {
	for r := range src.Roles() {
		subjects = append(subjects, r.ExtID)
		objects = append(objects, r.ExtID)
	}
	for c := range src.Collections() {
		objects = append(objects, c.ExtID)
	}
	for p := range src.Privileges() {
		privileges = append(privileges, p.ExtID)
	}
	return subjects, objects, privileges
}

func orphanSweep(ctx context.Context, tx Tx, subjects, objects, privileges []string) error {
	// Rules before entities: a static rule referencing a since-removed
	// declaration would otherwise dangle until CASCADE caught up, and
	// every static rule is about to be rebuilt in phase 4 anyway.
	if err := DeleteStaticRules(ctx, tx); err != nil {
		return err
	}

	sets := []struct {
		kind Kind
		keep []string
	}{
		{Subject, subjects},
		{Object, objects},
		{Privilege, privileges},
	}
	for _, s := range sets {
		orphanIDs, err := StaticExtIDsNotIn(ctx, tx, s.kind, s.keep)
		if err != nil {
			return err
		}
		if len(orphanIDs) == 0 {
			continue
		}
		for _, id := range orphanIDs {
			if err := DeleteEntity(ctx, tx, id); err != nil {
				return err
			}
		}
		// ON DELETE CASCADE only drops closure rows that reference a
		// deleted id directly; a transitive pair like (admin, employee)
		// that was only valid via a deleted "manager" in between
		// references neither endpoint and survives the cascade. Rebuild
		// the closure for this kind from the surviving edges so no stale
		// reachability outlives the entity that justified it.
		if err := RebuildClosure(ctx, tx, s.kind); err != nil {
			return err
		}
	}
	return nil
}

func registerDeclaredEntities(ctx context.Context, tx Tx, src declare.Source) error {
	for p := range src.Privileges() {
		id, err := UpsertEntity(ctx, tx, Privilege, p.ExtID, p.Description, true)
		if err != nil {
			return err
		}
		if err := EnsureChildOfSupremum(ctx, tx, Privilege, id, true); err != nil {
			return err
		}
	}
	for r := range src.Roles() {
		subjectID, err := UpsertEntity(ctx, tx, Subject, r.ExtID, r.Description, true)
		if err != nil {
			return err
		}
		if err := EnsureChildOfSupremum(ctx, tx, Subject, subjectID, true); err != nil {
			return err
		}
		objectID, err := UpsertEntity(ctx, tx, Object, r.ExtID, r.Description, true)
		if err != nil {
			return err
		}
		if err := EnsureChildOfSupremum(ctx, tx, Object, objectID, true); err != nil {
			return err
		}
	}
	for c := range src.Collections() {
		id, err := UpsertEntity(ctx, tx, Object, c.ExtID, c.Description, true)
		if err != nil {
			return err
		}
		if err := EnsureChildOfSupremum(ctx, tx, Object, id, true); err != nil {
			return err
		}
	}
	return nil
}

func rebuildStaticRules(ctx context.Context, tx Tx, src declare.Source) error {
	for r := range src.Rules() {
		subject, err := LookupEntity(ctx, tx, Subject, r.SubjectExtID)
		if err != nil {
			return NewError(ErrInvalidSubject, fmt.Sprintf("rule declaration references unknown subject %q", r.SubjectExtID))
		}
		object, err := LookupEntity(ctx, tx, Object, r.ObjectExtID)
		if err != nil {
			return NewError(ErrInvalidObject, fmt.Sprintf("rule declaration references unknown object %q", r.ObjectExtID))
		}
		privilege, err := LookupEntity(ctx, tx, Privilege, r.PrivilegeExtID)
		if err != nil {
			return NewError(ErrInvalidPermission, fmt.Sprintf("rule declaration references unknown permission %q", r.PrivilegeExtID))
		}
		sign := Sign(r.Sign)
		if sign != Positive && sign != Negative {
			return fmt.Errorf("rule declaration for (%s,%s,%s) has invalid sign %q", r.SubjectExtID, r.ObjectExtID, r.PrivilegeExtID, r.Sign)
		}
		if err := PutRule(ctx, tx, subject.InternalID, object.InternalID, privilege.InternalID, sign, true); err != nil {
			return err
		}
	}
	return nil
}

func reconcileEdges(ctx context.Context, tx Tx, src declare.Source) error {
	for p := range src.Privileges() {
		node, err := LookupEntity(ctx, tx, Privilege, p.ExtID)
		if err != nil {
			return err
		}
		declaredChildren, err := resolveIDs(ctx, tx, Privilege, p.ImpliedExtIDs)
		if err != nil {
			return err
		}
		if err := reconcileChildren(ctx, tx, Privilege, node.InternalID, declaredChildren); err != nil {
			return err
		}
	}

	for r := range src.Roles() {
		declaredParents, err := resolveIDs(ctx, tx, Subject, r.ImpliedExtIDs)
		if err != nil {
			return err
		}
		subjectNode, err := LookupEntity(ctx, tx, Subject, r.ExtID)
		if err != nil {
			return err
		}
		if err := reconcileParents(ctx, tx, Subject, subjectNode.InternalID, declaredParents); err != nil {
			return err
		}

		declaredObjectParents, err := resolveIDs(ctx, tx, Object, r.ImpliedExtIDs)
		if err != nil {
			return err
		}
		objectNode, err := LookupEntity(ctx, tx, Object, r.ExtID)
		if err != nil {
			return err
		}
		if err := reconcileParents(ctx, tx, Object, objectNode.InternalID, declaredObjectParents); err != nil {
			return err
		}
	}

	for c := range src.Collections() {
		node, err := LookupEntity(ctx, tx, Object, c.ExtID)
		if err != nil {
			return err
		}
		declaredParents, err := resolveIDs(ctx, tx, Object, c.InExtIDs)
		if err != nil {
			return err
		}
		if err := reconcileParents(ctx, tx, Object, node.InternalID, declaredParents); err != nil {
			return err
		}
	}

	return nil
}

func resolveIDs(ctx context.Context, tx Tx, kind Kind, extIDs []string) (map[int64]bool, error) {
	ids := make(map[int64]bool, len(extIDs))
	for _, extID := range extIDs {
		e, err := LookupEntity(ctx, tx, kind, extID)
		if err != nil {
			return nil, fmt.Errorf("resolving declared %s %q: %w", kind, extID, err)
		}
		ids[e.InternalID] = true
	}
	return ids, nil
}

// reconcileParents diffs nodeID's persisted static parents against
// declaredParents, removing edges no longer declared and adding missing
// ones.
//
// A declaration with no implied/parent ext ids at all must not strip
// nodeID down to zero parents: that would sever the supremum-ancestor
// guarantee phase 3 just established (spec section 4.2, "unless it
// already has another parent path to it"). When nothing is declared, the
// supremum itself is the implicit declared parent, so the diff below
// leaves (or restores) exactly that edge instead of deleting it outright.
func reconcileParents(ctx context.Context, tx Tx, kind Kind, nodeID int64, declaredParents map[int64]bool) error {
	if len(declaredParents) == 0 {
		supremumID, err := EnsureSupremum(ctx, tx, kind)
		if err != nil {
			return err
		}
		declaredParents = map[int64]bool{supremumID: true}
	}

	persisted, err := StaticParents(ctx, tx, kind, nodeID)
	if err != nil {
		return err
	}
	persistedSet := make(map[int64]bool, len(persisted))
	for _, id := range persisted {
		persistedSet[id] = true
	}

	for parentID := range persistedSet {
		if !declaredParents[parentID] {
			if err := RemoveEdge(ctx, tx, kind, parentID, nodeID); err != nil {
				return err
			}
		}
	}
	for parentID := range declaredParents {
		if !persistedSet[parentID] {
			if err := AddEdge(ctx, tx, kind, parentID, nodeID, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileChildren is reconcileParents' mirror for privilege
// declarations, which point downward from the declared privilege to its
// implied (child) privileges. Unlike reconcileParents it never needs a
// supremum fallback: it only ever removes edges on which nodeID is the
// parent, so nodeID's own parent chain (and each child's direct
// supremum edge from phase 3) is never touched here.
func reconcileChildren(ctx context.Context, tx Tx, kind Kind, nodeID int64, declaredChildren map[int64]bool) error {
	persisted, err := StaticChildren(ctx, tx, kind, nodeID)
	if err != nil {
		return err
	}
	persistedSet := make(map[int64]bool, len(persisted))
	for _, id := range persisted {
		persistedSet[id] = true
	}

	for childID := range persistedSet {
		if !declaredChildren[childID] {
			if err := RemoveEdge(ctx, tx, kind, nodeID, childID); err != nil {
				return err
			}
		}
	}
	for childID := range declaredChildren {
		if !persistedSet[childID] {
			if err := AddEdge(ctx, tx, kind, nodeID, childID, true); err != nil {
				return err
			}
		}
	}
	return nil
}
