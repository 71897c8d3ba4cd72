package hazel

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazelgraph/hazel/internal/dag"
	"github.com/hazelgraph/hazel/internal/declare"
	"github.com/hazelgraph/hazel/internal/normalize"
)

// Engine is the public API surface (spec section 6): registration,
// grant/deny/revoke/allow, child add/remove, authorization queries, rule
// listing, membership queries, and declaration reconciliation. Every
// mutating method runs inside one transaction against the backing
// Store.
type Engine struct {
	store                Store
	cache                Cache
	honorContextOverride bool
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithCache installs a decision Cache in front of PermissionGranted and
// MustPermissionGranted. Off by default.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithContextOverride opts this Engine into honoring an Override set via
// WithOverrideContext on a query's context. Off by default: a context
// value alone never bypasses authorization unless the Engine was built
// with this option.
func WithContextOverride() Option {
	return func(e *Engine) { e.honorContextOverride = true }
}

// NewEngine constructs an Engine over st, applying any number of
// options.
func NewEngine(st Store, opts ...Option) *Engine {
	e := &Engine{store: st}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func normalizeID(v any) (string, error) {
	id, err := normalize.Normalize(v)
	if err != nil {
		return "", err
	}
	return id, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return newError(ErrIDRequired, "external id must not be blank")
	}
	return nil
}

func requireDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return newError(ErrDescriptionRequired, "description must not be blank")
	}
	return nil
}

func (e *Engine) register(ctx context.Context, kind Kind, extIDValue any, description string, static bool) error {
	extID, err := normalizeID(extIDValue)
	if err != nil {
		return err
	}
	if err := requireID(extID); err != nil {
		return err
	}
	if err := requireDescription(description); err != nil {
		return err
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := UpsertEntity(ctx, tx, kind, extID, description, static)
	if err != nil {
		return err
	}
	if err := EnsureChildOfSupremum(ctx, tx, kind, id, static); err != nil {
		return err
	}

	return tx.Commit()
}

// RegisterSubject registers a subject entity, upserting its description
// and static flag on external-id collision, and ensuring an edge from
// the subject supremum to the new node (spec section 4.2).
func (e *Engine) RegisterSubject(ctx context.Context, extID any, description string, static bool) error {
	return e.register(ctx, Subject, extID, description, static)
}

// RegisterObject registers an object entity. See RegisterSubject.
func (e *Engine) RegisterObject(ctx context.Context, extID any, description string, static bool) error {
	return e.register(ctx, Object, extID, description, static)
}

// RegisterPermission registers a privilege entity. See RegisterSubject.
func (e *Engine) RegisterPermission(ctx context.Context, extID any, description string, static bool) error {
	return e.register(ctx, Privilege, extID, description, static)
}

func (e *Engine) resolveTriple(ctx context.Context, tx Tx, subjectExtID, objectExtID, privilegeExtID any) (subjectID, objectID, privilegeID int64, err error) {
	sExt, err := normalizeID(subjectExtID)
	if err != nil {
		return 0, 0, 0, err
	}
	oExt, err := normalizeID(objectExtID)
	if err != nil {
		return 0, 0, 0, err
	}
	pExt, err := normalizeID(privilegeExtID)
	if err != nil {
		return 0, 0, 0, err
	}

	subject, err := LookupEntity(ctx, tx, Subject, sExt)
	if err != nil {
		return 0, 0, 0, newError(ErrInvalidSubject, fmt.Sprintf("unknown subject %q", sExt))
	}
	object, err := LookupEntity(ctx, tx, Object, oExt)
	if err != nil {
		return 0, 0, 0, newError(ErrInvalidObject, fmt.Sprintf("unknown object %q", oExt))
	}
	privilege, err := LookupEntity(ctx, tx, Privilege, pExt)
	if err != nil {
		return 0, 0, 0, newError(ErrInvalidPermission, fmt.Sprintf("unknown permission %q", pExt))
	}
	return subject.InternalID, object.InternalID, privilege.InternalID, nil
}

func (e *Engine) putRule(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any, sign Sign) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sID, oID, pID, err := e.resolveTriple(ctx, tx, subjectExtID, objectExtID, privilegeExtID)
	if err != nil {
		return err
	}
	if err := PutRule(ctx, tx, sID, oID, pID, sign, false); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.invalidateCache()
	return nil
}

// Grant records a positive access rule for (subject, object, privilege).
// Idempotent if an identical positive rule already exists; fails with
// ErrConflictingRuleType if a negative one does.
func (e *Engine) Grant(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) error {
	return e.putRule(ctx, subjectExtID, objectExtID, privilegeExtID, Positive)
}

// Deny records a negative access rule. See Grant.
func (e *Engine) Deny(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) error {
	return e.putRule(ctx, subjectExtID, objectExtID, privilegeExtID, Negative)
}

func (e *Engine) dropRuleWithSign(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any, sign Sign) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sID, oID, pID, err := e.resolveTriple(ctx, tx, subjectExtID, objectExtID, privilegeExtID)
	if err != nil {
		return err
	}
	if err := DropRuleWithSign(ctx, tx, sID, oID, pID, sign); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.invalidateCache()
	return nil
}

// Revoke removes a positive rule for (subject, object, privilege), if
// one exists. A rule of the opposite sign on the same triple is left
// untouched. Absence is success.
func (e *Engine) Revoke(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) error {
	return e.dropRuleWithSign(ctx, subjectExtID, objectExtID, privilegeExtID, Positive)
}

// Allow removes a negative rule for (subject, object, privilege), if one
// exists. See Revoke.
func (e *Engine) Allow(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) error {
	return e.dropRuleWithSign(ctx, subjectExtID, objectExtID, privilegeExtID, Negative)
}

// AddChild inserts a parent -> child edge within kind, rejecting a
// self-loop or any edge that would close a cycle (spec section 4.3).
// Dynamically added edges are never marked static.
func (e *Engine) AddChild(ctx context.Context, kind Kind, parentExtID, childExtID any) error {
	pExt, err := normalizeID(parentExtID)
	if err != nil {
		return err
	}
	cExt, err := normalizeID(childExtID)
	if err != nil {
		return err
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parent, err := LookupEntity(ctx, tx, kind, pExt)
	if err != nil {
		return newError(ErrInvalidParent, fmt.Sprintf("unknown %s %q", kind, pExt))
	}
	child, err := LookupEntity(ctx, tx, kind, cExt)
	if err != nil {
		return newError(ErrInvalidChild, fmt.Sprintf("unknown %s %q", kind, cExt))
	}

	if err := AddEdge(ctx, tx, kind, parent.InternalID, child.InternalID, false); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.invalidateCache()
	return nil
}

// RemoveChild deletes a parent -> child edge within kind, if present.
// Absence is success.
func (e *Engine) RemoveChild(ctx context.Context, kind Kind, parentExtID, childExtID any) error {
	pExt, err := normalizeID(parentExtID)
	if err != nil {
		return err
	}
	cExt, err := normalizeID(childExtID)
	if err != nil {
		return err
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parent, err := LookupEntity(ctx, tx, kind, pExt)
	if err != nil {
		return newError(ErrInvalidParent, fmt.Sprintf("unknown %s %q", kind, pExt))
	}
	child, err := LookupEntity(ctx, tx, kind, cExt)
	if err != nil {
		return newError(ErrInvalidChild, fmt.Sprintf("unknown %s %q", kind, cExt))
	}

	if err := RemoveEdge(ctx, tx, kind, parent.InternalID, child.InternalID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	e.invalidateCache()
	return nil
}

// PermissionGranted answers permission_granted?(s, o, p), reporting an
// unresolved identifier as data (an *Error of the corresponding
// invalid_* kind) rather than raising.
func (e *Engine) PermissionGranted(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) (Decision, error) {
	sExt, err := normalizeID(subjectExtID)
	if err != nil {
		return Denied, err
	}
	oExt, err := normalizeID(objectExtID)
	if err != nil {
		return Denied, err
	}
	pExt, err := normalizeID(privilegeExtID)
	if err != nil {
		return Denied, err
	}
	return Evaluate(ctx, e.store, e.cache, e.honorContextOverride, sExt, oExt, pExt)
}

// MustPermissionGranted is the raising variant of PermissionGranted for
// use at enforcement points (spec section 9's "raising form at the app
// boundary"): it panics on any error instead of returning it.
func (e *Engine) MustPermissionGranted(ctx context.Context, subjectExtID, objectExtID, privilegeExtID any) Decision {
	d, err := e.PermissionGranted(ctx, subjectExtID, objectExtID, privilegeExtID)
	if err != nil {
		panic(err)
	}
	return d
}

// ListRules returns every rule where ext_id matches as subject (kind ==
// Subject) or object (kind == Object), ordered by
// (subject_ext, object_ext, privilege_ext, sign).
func (e *Engine) ListRules(ctx context.Context, kind Kind, extID any) ([]RuleView, error) {
	ext, err := normalizeID(extID)
	if err != nil {
		return nil, err
	}

	var lookupKind Kind
	switch kind {
	case Subject, Object:
		lookupKind = kind
	default:
		return nil, fmt.Errorf("hazel: list_rules kind must be Subject or Object, got %q", kind)
	}

	entity, err := LookupEntity(ctx, e.store, lookupKind, ext)
	if err != nil {
		return nil, newError(ErrNotFound, fmt.Sprintf("unknown %s %q", lookupKind, ext))
	}

	if kind == Subject {
		return ListRulesBySubject(ctx, e.store, entity.InternalID)
	}
	return ListRulesByObject(ctx, e.store, entity.InternalID)
}

// storeEdgeLister adapts Store to internal/dag.EdgeLister for a single
// Kind, so Members can reuse the BFS implementation instead of trusting
// the closure table for a caller-facing listing.
type storeEdgeLister struct {
	Store
	kind Kind
}

func (l storeEdgeLister) Children(ctx context.Context, id int64) ([]int64, error) {
	return Children(ctx, l.Store, l.kind, id)
}

func (l storeEdgeLister) Parents(ctx context.Context, id int64) ([]int64, error) {
	return Parents(ctx, l.Store, l.kind, id)
}

// Members returns the ordered external ids of every descendant of
// ext_id within kind, excluding ext_id itself.
func (e *Engine) Members(ctx context.Context, kind Kind, extID any) ([]string, error) {
	ext, err := normalizeID(extID)
	if err != nil {
		return nil, err
	}

	entity, err := LookupEntity(ctx, e.store, kind, ext)
	if err != nil {
		return nil, newError(ErrNotFound, fmt.Sprintf("unknown %s %q", kind, ext))
	}

	ids, err := dag.Descendants(ctx, storeEdgeLister{e.store, kind}, entity.InternalID)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, id := range ids {
		if id == entity.InternalID {
			continue
		}
		member, err := LookupEntityByID(ctx, e.store, kind, id)
		if err != nil {
			return nil, err
		}
		names = append(names, member.ExtID)
	}
	return names, nil
}

// Reconcile converges persisted static state to src (spec section 4.6).
// Safe to call repeatedly; dynamic entities, edges, and rules are never
// touched.
func (e *Engine) Reconcile(ctx context.Context, src declare.Source) error {
	if err := Reconcile(ctx, e.store, src); err != nil {
		return err
	}
	e.invalidateCache()
	return nil
}

func (e *Engine) invalidateCache() {
	if c, ok := e.cache.(interface{ Clear() }); ok {
		c.Clear()
	}
}
