// Package dag provides the pure-Go graph math behind each of hazel's
// three independent DAGs (subject, object, privilege): ancestor and
// descendant breadth-first search over an in-process adjacency view, and
// a validator that checks a persisted closure table against a freshly
// computed one. The actual edge mutation and closure persistence lives
// in the root hazel package; this package supplies the traversal the
// teacher's schema/closure.go computeTransitiveSatisfiers used for
// relation expansion, generalized here from "relations" to generic DAG
// nodes.
package dag

import "context"

// EdgeLister is the read surface this package needs from a store: the
// direct children and direct parents of a node. Ancestors/Descendants/Validate walk it
// breadth-first rather than trusting a possibly-stale closure table.
type EdgeLister interface {
	Children(ctx context.Context, id int64) ([]int64, error)
	Parents(ctx context.Context, id int64) ([]int64, error)
}

// Descendants returns every node reachable from root by following child
// edges, including root itself, via breadth-first search.
func Descendants(ctx context.Context, g EdgeLister, root int64) ([]int64, error) {
	return bfs(ctx, root, g.Children)
}

// Ancestors returns every node that can reach root by following child
// edges, including root itself, via breadth-first search over parent
// edges.
func Ancestors(ctx context.Context, g EdgeLister, root int64) ([]int64, error) {
	return bfs(ctx, root, g.Parents)
}

func bfs(ctx context.Context, root int64, next func(context.Context, int64) ([]int64, error)) ([]int64, error) {
	visited := map[int64]bool{root: true}
	order := []int64{root}
	queue := []int64{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, err := next(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			order = append(order, n)
			queue = append(queue, n)
		}
	}
	return order, nil
}

// WouldCycle reports whether adding the edge parent -> child would
// create a cycle in the DAG g already describes: true for a self-loop,
// or when child already reaches parent.
func WouldCycle(ctx context.Context, g EdgeLister, parent, child int64) (bool, error) {
	if parent == child {
		return true, nil
	}
	reachableFromChild, err := Descendants(ctx, g, child)
	if err != nil {
		return false, err
	}
	for _, id := range reachableFromChild {
		if id == parent {
			return true, nil
		}
	}
	return false, nil
}

// ClosureLister is the read surface of a persisted closure table, used
// by Validate to cross-check it against a freshly computed traversal.
type ClosureLister interface {
	Descendants(ctx context.Context, id int64) ([]int64, error)
}

// Validate recomputes root's descendant set by BFS over g and compares
// it against the closure table's recorded set for root, returning the
// symmetric difference (ids present in one set but not the other). An
// empty, nil-error result means the closure table matches the graph.
// Used by internal/doctor as a consistency check, not on any decision
// path.
func Validate(ctx context.Context, g EdgeLister, closure ClosureLister, root int64) ([]int64, error) {
	computed, err := Descendants(ctx, g, root)
	if err != nil {
		return nil, err
	}
	recorded, err := closure.Descendants(ctx, root)
	if err != nil {
		return nil, err
	}

	computedSet := make(map[int64]bool, len(computed))
	for _, id := range computed {
		computedSet[id] = true
	}
	recordedSet := make(map[int64]bool, len(recorded))
	for _, id := range recorded {
		recordedSet[id] = true
	}

	var diff []int64
	for id := range computedSet {
		if !recordedSet[id] {
			diff = append(diff, id)
		}
	}
	for id := range recordedSet {
		if !computedSet[id] {
			diff = append(diff, id)
		}
	}
	return diff, nil
}
