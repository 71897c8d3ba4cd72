package hazel

import (
	"context"
	"fmt"
)

// reachabilityStore is the read surface the decision algorithm needs,
// factored out from Querier so the algorithm can be pinned down in tests
// against an in-memory fake instead of a database.
type reachabilityStore interface {
	LookupEntity(ctx context.Context, kind Kind, extID string) (Entity, error)
	Ancestors(ctx context.Context, kind Kind, id int64) ([]int64, error)
	Descendants(ctx context.Context, kind Kind, id int64) ([]int64, error)
	AnyRuleWithSign(ctx context.Context, subjectIDs, objectIDs, privilegeIDs []int64, sign Sign) (bool, error)
}

// querierReachabilityStore adapts a Querier to reachabilityStore via the
// package-level entity/closure/rule query functions.
type querierReachabilityStore struct {
	db Querier
}

func (q querierReachabilityStore) LookupEntity(ctx context.Context, kind Kind, extID string) (Entity, error) {
	return LookupEntity(ctx, q.db, kind, extID)
}

func (q querierReachabilityStore) Ancestors(ctx context.Context, kind Kind, id int64) ([]int64, error) {
	return Ancestors(ctx, q.db, kind, id)
}

func (q querierReachabilityStore) Descendants(ctx context.Context, kind Kind, id int64) ([]int64, error) {
	return Descendants(ctx, q.db, kind, id)
}

func (q querierReachabilityStore) AnyRuleWithSign(ctx context.Context, subjectIDs, objectIDs, privilegeIDs []int64, sign Sign) (bool, error) {
	return AnyRuleWithSign(ctx, q.db, subjectIDs, objectIDs, privilegeIDs, sign)
}

// Evaluate answers permission_granted?(subjectExtID, objectExtID, privilegeExtID)
// per spec section 4.5: negative rules are evaluated first over the
// descendant-privilege set (plus the privilege supremum, the "absolute
// deny" dominator), then positive rules over the ancestor-privilege set,
// defaulting to denied in the closed world. Negative always wins: this
// function never special-cases a tie, because there is none by
// construction — the negative branch runs to completion before the
// positive branch is even consulted.
//
// honorContextOverride gates whether an Override set via
// WithOverrideContext short-circuits the query; Engine only passes true
// when constructed with WithContextOverride, keeping the bypass opt-in
// rather than automatic.
func Evaluate(ctx context.Context, db Querier, cache Cache, honorContextOverride bool, subjectExtID, objectExtID, privilegeExtID string) (Decision, error) {
	return EvaluateReachable(ctx, querierReachabilityStore{db}, cache, honorContextOverride, subjectExtID, objectExtID, privilegeExtID)
}

// EvaluateReachable is Evaluate's store-agnostic core: it runs the same
// algorithm against any reachabilityStore, which lets the algorithm's
// tests pin down the negative-first, positive-second, closed-world
// semantics against an in-memory fake instead of a database.
func EvaluateReachable(ctx context.Context, s reachabilityStore, cache Cache, honorContextOverride bool, subjectExtID, objectExtID, privilegeExtID string) (Decision, error) {
	if honorContextOverride {
		if override := OverrideFromContext(ctx); override != OverrideUnset {
			return overrideDecision(override), nil
		}
	}

	if cache != nil {
		if d, err, ok := cache.Get(subjectExtID, objectExtID, privilegeExtID); ok {
			return d, err
		}
	}

	d, err := evaluateUncached(ctx, s, subjectExtID, objectExtID, privilegeExtID)
	if cache != nil {
		cache.Set(subjectExtID, objectExtID, privilegeExtID, d, err)
	}
	return d, err
}

// MustEvaluate is the raising variant of Evaluate for use at enforcement
// points: any error, including an unresolved identifier, panics with the
// *Error rather than being reported as data.
func MustEvaluate(ctx context.Context, db Querier, cache Cache, honorContextOverride bool, subjectExtID, objectExtID, privilegeExtID string) Decision {
	d, err := Evaluate(ctx, db, cache, honorContextOverride, subjectExtID, objectExtID, privilegeExtID)
	if err != nil {
		panic(err)
	}
	return d
}

// MustEvaluateReachable is MustEvaluate's store-agnostic core. See
// EvaluateReachable.
func MustEvaluateReachable(ctx context.Context, s reachabilityStore, cache Cache, honorContextOverride bool, subjectExtID, objectExtID, privilegeExtID string) Decision {
	d, err := EvaluateReachable(ctx, s, cache, honorContextOverride, subjectExtID, objectExtID, privilegeExtID)
	if err != nil {
		panic(err)
	}
	return d
}

func overrideDecision(o Override) Decision {
	if o == OverrideAllow {
		return Granted
	}
	return Denied
}

func evaluateUncached(ctx context.Context, s reachabilityStore, subjectExtID, objectExtID, privilegeExtID string) (Decision, error) {
	subject, err := s.LookupEntity(ctx, Subject, subjectExtID)
	if err != nil {
		return Denied, NewError(ErrInvalidSubject, fmt.Sprintf("unknown subject %q", subjectExtID))
	}
	object, err := s.LookupEntity(ctx, Object, objectExtID)
	if err != nil {
		return Denied, NewError(ErrInvalidObject, fmt.Sprintf("unknown object %q", objectExtID))
	}
	privilege, err := s.LookupEntity(ctx, Privilege, privilegeExtID)
	if err != nil {
		return Denied, NewError(ErrInvalidPermission, fmt.Sprintf("unknown permission %q", privilegeExtID))
	}

	ancSubject, err := s.Ancestors(ctx, Subject, subject.InternalID)
	if err != nil {
		return Denied, err
	}
	ancObject, err := s.Ancestors(ctx, Object, object.InternalID)
	if err != nil {
		return Denied, err
	}
	descPrivilege, err := s.Descendants(ctx, Privilege, privilege.InternalID)
	if err != nil {
		return Denied, err
	}
	ancPrivilege, err := s.Ancestors(ctx, Privilege, privilege.InternalID)
	if err != nil {
		return Denied, err
	}

	privilegeSupremum, err := s.LookupEntity(ctx, Privilege, SupremumExtID)
	if err != nil {
		return Denied, err
	}
	negativePrivileges := appendIfMissing(descPrivilege, privilegeSupremum.InternalID)

	denied, err := s.AnyRuleWithSign(ctx, ancSubject, ancObject, negativePrivileges, Negative)
	if err != nil {
		return Denied, err
	}
	if denied {
		return Denied, nil
	}

	granted, err := s.AnyRuleWithSign(ctx, ancSubject, ancObject, ancPrivilege, Positive)
	if err != nil {
		return Denied, err
	}
	if granted {
		return Granted, nil
	}

	return Denied, nil
}

func appendIfMissing(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
