// Package hazel implements a hierarchical authorization engine: it answers
// "is subject S permitted to perform privilege P on object O?" over three
// independent directed acyclic graphs of subjects, objects, and privileges,
// with explicit positive and negative access rules that propagate through
// those graphs under well-defined precedence rules.
//
// # Core Concepts
//
// Subjects, objects, and privileges are modeled as three separate DAGs
// (Kind). A single external identity (e.g. a user) may appear as both a
// subject and an object with unrelated hierarchies — hazel never collapses
// the three kinds into one type.
//
//	eng := hazel.NewEngine(store)
//	err := eng.RegisterSubject(ctx, "alice", "Alice Example", false)
//	err = eng.Grant(ctx, "admin", "doc-1", "edit")
//	decision, err := eng.PermissionGranted(ctx, "alice", "doc-1", "edit")
//
// # Positive and Negative Rules
//
// An access rule carries a Sign: Positive (grant) or Negative (deny). A
// negative rule reachable through the ancestor/descendant sets of a query
// always overrides any positive rule, regardless of how many hierarchy
// hops separate either rule from the query (the "negative wins
// unconditionally" invariant).
//
// # Declarative Reconciliation
//
// Applications typically seed a baseline of roles, collections,
// privileges, and rules declaratively; see internal/declare and
// Engine.Reconcile. Reconciliation is idempotent and never touches
// dynamically created (non-static) entities, edges, or rules.
//
// # Transactional Boundaries
//
// Every mutating operation on Engine is a single transaction against the
// backing Store: registration, edge mutation, and rule put/drop each
// commit or roll back atomically. Partial state is never observable.
package hazel

// Kind identifies which of the three independent DAGs an entity belongs
// to. Subjects, objects, and privileges are modeled independently so a
// single external identity may appear as both a subject and an object
// with unrelated hierarchies.
type Kind string

const (
	// Subject is the entity attempting an operation.
	Subject Kind = "subject"
	// Object is the entity being operated upon.
	Object Kind = "object"
	// Privilege is a named discrete capability.
	Privilege Kind = "privilege"
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	return string(k)
}

// SupremumExtID is the reserved external id for the distinguished
// top-of-DAG node present in every kind. It is an ancestor of every node
// in its DAG and is never deleted.
const SupremumExtID = "*"

// Sign distinguishes a positive (grant) rule from a negative (deny) rule.
type Sign string

const (
	// Positive marks a grant.
	Positive Sign = "+"
	// Negative marks a deny. A negative rule reachable through a query's
	// ancestor/descendant sets always overrides a positive one.
	Negative Sign = "-"
)

// String returns the canonical sign glyph.
func (s Sign) String() string {
	return string(s)
}

// Entity is a row in one of the three DAGs: a subject, object, or
// privilege. InternalID is an opaque surrogate key assigned on insert;
// ExtID is the caller-visible canonical external identifier, unique
// within its Kind.
type Entity struct {
	InternalID  int64
	Kind        Kind
	ExtID       string
	Description string
	// Static is true if this row is owned by the declarative reconciler,
	// false if it was created dynamically through the API. Only the
	// reconciler removes static rows; dynamic rows are removed only by
	// explicit API deletion.
	Static bool
}

// IsSupremum reports whether e is the distinguished top node of its DAG.
func (e Entity) IsSupremum() bool {
	return e.ExtID == SupremumExtID
}

// Edge is a directed parent-to-child pair between two entities of the
// same Kind. The set of edges within a Kind forms a DAG.
type Edge struct {
	Kind     Kind
	ParentID int64
	ChildID  int64
}

// Rule is an access rule tuple (subject, object, privilege, sign). The
// triple (SubjectID, ObjectID, PrivilegeID) is unique: at most one Sign
// may exist for it at any moment.
type Rule struct {
	SubjectID   int64
	ObjectID    int64
	PrivilegeID int64
	Sign        Sign
	Static      bool
}

// RuleView is a rule rendered with external identifiers, as returned by
// ListRules.
type RuleView struct {
	SubjectExtID   string
	ObjectExtID    string
	PrivilegeExtID string
	Sign           Sign
}

// Decision is the outcome of an authorization query.
type Decision int

const (
	// Denied means the query is not authorized. It is also the
	// closed-world default when no rule applies.
	Denied Decision = iota
	// Granted means the query is authorized.
	Granted
)

// String renders the decision as "granted" or "denied".
func (d Decision) String() string {
	if d == Granted {
		return "granted"
	}
	return "denied"
}

// Bool reports whether the decision is Granted.
func (d Decision) Bool() bool {
	return d == Granted
}
