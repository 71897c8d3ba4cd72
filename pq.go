package hazel

import "github.com/lib/pq"

// pqStringArray renders a Go string slice as a PostgreSQL text[] query
// parameter, the way the teacher's migrator scans melange_migrations'
// function_names column with pq.Array.
func pqStringArray(ss []string) any {
	if ss == nil {
		ss = []string{}
	}
	return pq.Array(ss)
}

// pqInt64Array renders a Go int64 slice as a PostgreSQL bigint[] query
// parameter, used by the decision engine's reachability-set membership
// checks against hazel_rules.
func pqInt64Array(ids []int64) any {
	if ids == nil {
		ids = []int64{}
	}
	return pq.Array(ids)
}
