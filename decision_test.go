package hazel_test

import (
	"context"
	"testing"

	"github.com/hazelgraph/hazel"
)

// fakeStore is a minimal in-memory reachability store used to pin down
// the negative-first, positive-second, closed-world-default algorithm
// without a database. It structurally satisfies hazel's unexported
// reachabilityStore interface: the interface is unexported but its
// methods are not, so a value from this external test package can still
// be passed to hazel.EvaluateReachable.
type fakeStore struct {
	entities  map[hazel.Kind]map[string]int64
	ancestors map[hazel.Kind]map[int64][]int64
	descs     map[hazel.Kind]map[int64][]int64
	rules     map[hazel.Sign][][3]int64
}

func newFakeStore() *fakeStore {
	f := &fakeStore{
		entities:  map[hazel.Kind]map[string]int64{hazel.Subject: {}, hazel.Object: {}, hazel.Privilege: {}},
		ancestors: map[hazel.Kind]map[int64][]int64{hazel.Subject: {}, hazel.Object: {}, hazel.Privilege: {}},
		descs:     map[hazel.Kind]map[int64][]int64{hazel.Subject: {}, hazel.Object: {}, hazel.Privilege: {}},
		rules:     map[hazel.Sign][][3]int64{},
	}
	for _, k := range []hazel.Kind{hazel.Subject, hazel.Object, hazel.Privilege} {
		f.register(k, hazel.SupremumExtID, []int64{})
	}
	return f
}

// register assigns the next id to extID within kind and wires ancestors
// to include every id in parentAncestorsOfParent plus itself, mirroring
// the descendant direction too.
func (f *fakeStore) register(kind hazel.Kind, extID string, parentAncestorsOfParent []int64) int64 {
	id := int64(len(f.entities[kind]) + 1)
	f.entities[kind][extID] = id
	f.ancestors[kind][id] = append(append([]int64{}, parentAncestorsOfParent...), id)
	for _, anc := range parentAncestorsOfParent {
		f.descs[kind][anc] = append(f.descs[kind][anc], id)
	}
	f.descs[kind][id] = append(f.descs[kind][id], id)
	return id
}

func (f *fakeStore) LookupEntity(_ context.Context, kind hazel.Kind, extID string) (hazel.Entity, error) {
	id, ok := f.entities[kind][extID]
	if !ok {
		return hazel.Entity{}, hazel.NewError(hazel.ErrNotFound, "not found")
	}
	return hazel.Entity{InternalID: id, Kind: kind, ExtID: extID}, nil
}

func (f *fakeStore) Ancestors(_ context.Context, kind hazel.Kind, id int64) ([]int64, error) {
	return f.ancestors[kind][id], nil
}

func (f *fakeStore) Descendants(_ context.Context, kind hazel.Kind, id int64) ([]int64, error) {
	return f.descs[kind][id], nil
}

func (f *fakeStore) AnyRuleWithSign(_ context.Context, subjectIDs, objectIDs, privilegeIDs []int64, sign hazel.Sign) (bool, error) {
	contains := func(ids []int64, id int64) bool {
		for _, x := range ids {
			if x == id {
				return true
			}
		}
		return false
	}
	for _, r := range f.rules[sign] {
		if contains(subjectIDs, r[0]) && contains(objectIDs, r[1]) && contains(privilegeIDs, r[2]) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) putRule(subjectID, objectID, privilegeID int64, sign hazel.Sign) {
	f.rules[sign] = append(f.rules[sign], [3]int64{subjectID, objectID, privilegeID})
}

func TestEvaluate_S1_NoRuleIsDenied(t *testing.T) {
	f := newFakeStore()
	f.register(hazel.Subject, "u1", nil)
	f.register(hazel.Object, "o1", nil)
	f.register(hazel.Privilege, "edit", nil)

	d, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "u1", "o1", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Denied {
		t.Fatalf("expected denied, got %v", d)
	}
}

func TestEvaluate_S2_GrantThenRevoke(t *testing.T) {
	f := newFakeStore()
	u1 := f.register(hazel.Subject, "u1", nil)
	o1 := f.register(hazel.Object, "o1", nil)
	edit := f.register(hazel.Privilege, "edit", nil)

	f.putRule(u1, o1, edit, hazel.Positive)
	d, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "u1", "o1", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Granted {
		t.Fatalf("expected granted, got %v", d)
	}

	f.rules[hazel.Positive] = nil
	d, err = hazel.EvaluateReachable(context.Background(), f, nil, false, "u1", "o1", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Denied {
		t.Fatalf("expected denied after revoke, got %v", d)
	}
}

func TestEvaluate_S3_HierarchicalSubjectPropagation(t *testing.T) {
	f := newFakeStore()
	admin := f.register(hazel.Subject, "admin", nil)
	editor := f.register(hazel.Subject, "editor", []int64{admin})
	f.register(hazel.Subject, "alice", []int64{admin, editor})
	doc := f.register(hazel.Object, "doc", nil)
	edit := f.register(hazel.Privilege, "edit", nil)

	f.putRule(admin, doc, edit, hazel.Positive)

	d, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "alice", "doc", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Granted {
		t.Fatalf("expected granted via subject hierarchy, got %v", d)
	}
}

func TestEvaluate_S4_PrivilegeImplication(t *testing.T) {
	f := newFakeStore()
	alice := f.register(hazel.Subject, "alice", nil)
	doc := f.register(hazel.Object, "doc", nil)
	edit := f.register(hazel.Privilege, "edit", nil)
	f.register(hazel.Privilege, "read", []int64{edit})

	f.putRule(alice, doc, edit, hazel.Positive)

	d, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "alice", "doc", "read")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Granted {
		t.Fatalf("expected edit to imply read, got %v", d)
	}
}

func TestEvaluate_S5_NegativeOnDescendantPrivilegeOverridesAncestorPositive(t *testing.T) {
	f := newFakeStore()
	alice := f.register(hazel.Subject, "alice", nil)
	doc := f.register(hazel.Object, "doc", nil)
	edit := f.register(hazel.Privilege, "edit", nil)
	read := f.register(hazel.Privilege, "read", []int64{edit})

	f.putRule(alice, doc, edit, hazel.Positive)
	f.putRule(alice, doc, read, hazel.Negative)

	dEdit, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "alice", "doc", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if dEdit != hazel.Denied {
		t.Fatalf("expected edit denied by descendant negative, got %v", dEdit)
	}

	dRead, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "alice", "doc", "read")
	if err != nil {
		t.Fatal(err)
	}
	if dRead != hazel.Denied {
		t.Fatalf("expected read denied, got %v", dRead)
	}
}

func TestEvaluate_PrivilegeSupremumDenyVetoesEverything(t *testing.T) {
	f := newFakeStore()
	alice := f.register(hazel.Subject, "alice", nil)
	doc := f.register(hazel.Object, "doc", nil)
	read := f.register(hazel.Privilege, "read", nil)
	supremumID := f.entities[hazel.Privilege][hazel.SupremumExtID]

	f.putRule(alice, doc, read, hazel.Positive)
	f.putRule(alice, doc, supremumID, hazel.Negative)

	d, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "alice", "doc", "read")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Denied {
		t.Fatalf("expected blanket deny on privilege supremum to veto read, got %v", d)
	}
}

func TestEvaluate_UnknownSubjectIsError(t *testing.T) {
	f := newFakeStore()
	f.register(hazel.Object, "o1", nil)
	f.register(hazel.Privilege, "edit", nil)

	_, err := hazel.EvaluateReachable(context.Background(), f, nil, false, "ghost", "o1", "edit")
	if !hazel.IsKind(err, hazel.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestEvaluate_OverrideAllowShortCircuits(t *testing.T) {
	f := newFakeStore()
	f.register(hazel.Subject, "u1", nil)
	f.register(hazel.Object, "o1", nil)
	f.register(hazel.Privilege, "edit", nil)

	ctx := hazel.WithOverrideContext(context.Background(), hazel.OverrideAllow)
	d, err := hazel.EvaluateReachable(ctx, f, nil, true, "ghost-subject-not-registered", "o1", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Granted {
		t.Fatalf("expected override to force granted even for an unknown subject, got %v", d)
	}
}

func TestEvaluate_OverrideIgnoredWhenNotHonored(t *testing.T) {
	f := newFakeStore()
	f.register(hazel.Subject, "u1", nil)
	f.register(hazel.Object, "o1", nil)
	f.register(hazel.Privilege, "edit", nil)

	ctx := hazel.WithOverrideContext(context.Background(), hazel.OverrideAllow)
	d, err := hazel.EvaluateReachable(ctx, f, nil, false, "u1", "o1", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if d != hazel.Denied {
		t.Fatalf("expected override to be ignored when honorContextOverride is false, got %v", d)
	}
}

func TestMustEvaluate_PanicsOnError(t *testing.T) {
	f := newFakeStore()
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustEvaluateReachable to panic on an invalid subject")
		}
	}()
	hazel.MustEvaluateReachable(context.Background(), f, nil, false, "ghost", "ghost", "ghost")
}
