package hazel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PutRule inserts a (subject, object, privilege) rule with the given
// sign, or leaves an identical existing row untouched. A row already
// exists for the triple with the opposite sign returns
// ErrConflictingRuleType rather than silently flipping it: spec section
// 4.4 requires an explicit drop_rule before the sign can change.
func PutRule(ctx context.Context, db Execer, subjectID, objectID, privilegeID int64, sign Sign, static bool) error {
	existing, err := lookupRuleSign(ctx, db, subjectID, objectID, privilegeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil && existing != sign {
		return NewError(ErrConflictingRuleType,
			fmt.Sprintf("rule (%d,%d,%d) already exists with sign %q", subjectID, objectID, privilegeID, existing))
	}

	const q = `
		INSERT INTO hazel_rules (subject_id, object_id, privilege_id, sign, static)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, object_id, privilege_id) DO UPDATE
			SET sign = EXCLUDED.sign, static = EXCLUDED.static`
	if _, err := db.ExecContext(ctx, q, subjectID, objectID, privilegeID, string(sign), static); err != nil {
		return fmt.Errorf("putting rule (%d,%d,%d): %w", subjectID, objectID, privilegeID, err)
	}
	return nil
}

// DropRule removes a rule row for the triple, if present. Dropping a
// rule that doesn't exist is a no-op, matching the upsert-flavored
// idempotence of the rest of the mutation surface.
func DropRule(ctx context.Context, db Execer, subjectID, objectID, privilegeID int64) error {
	const q = `DELETE FROM hazel_rules WHERE subject_id = $1 AND object_id = $2 AND privilege_id = $3`
	if _, err := db.ExecContext(ctx, q, subjectID, objectID, privilegeID); err != nil {
		return fmt.Errorf("dropping rule (%d,%d,%d): %w", subjectID, objectID, privilegeID, err)
	}
	return nil
}

// DropRuleWithSign removes the rule row for the triple only if its sign
// matches. A row present with the opposite sign is left untouched
// (drop_rule per spec section 4.4 removes exactly the matching
// (triple, sign) row); this is what revoke/allow use so revoking a grant
// can never accidentally clear an unrelated deny on the same triple.
func DropRuleWithSign(ctx context.Context, db Execer, subjectID, objectID, privilegeID int64, sign Sign) error {
	const q = `DELETE FROM hazel_rules WHERE subject_id = $1 AND object_id = $2 AND privilege_id = $3 AND sign = $4`
	if _, err := db.ExecContext(ctx, q, subjectID, objectID, privilegeID, string(sign)); err != nil {
		return fmt.Errorf("dropping %s rule (%d,%d,%d): %w", sign, subjectID, objectID, privilegeID, err)
	}
	return nil
}

// DeleteStaticRules removes every rule row marked static. Used by the
// reconciler's orphan sweep (spec section 4.6 phase 2): all static
// rules are dropped unconditionally and re-created in phase 4, which is
// simpler than diffing rule declarations and gives the same end state.
func DeleteStaticRules(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM hazel_rules WHERE static = true`); err != nil {
		return fmt.Errorf("deleting static rules: %w", err)
	}
	return nil
}

func lookupRuleSign(ctx context.Context, db Querier, subjectID, objectID, privilegeID int64) (Sign, error) {
	const q = `SELECT sign FROM hazel_rules WHERE subject_id = $1 AND object_id = $2 AND privilege_id = $3`
	var sign string
	err := db.QueryRowContext(ctx, q, subjectID, objectID, privilegeID).Scan(&sign)
	if err != nil {
		return "", err
	}
	return Sign(sign), nil
}

// AnyRuleWithSign reports whether a rule of the given sign exists whose
// subject_id is in subjectIDs, object_id is in objectIDs, and
// privilege_id is in privilegeIDs. This is the core existence check the
// decision engine runs twice per evaluation: once for negative rules
// over the descendant-privilege set (plus the privilege supremum), once
// for positive rules over the ancestor-privilege set.
func AnyRuleWithSign(ctx context.Context, db Querier, subjectIDs, objectIDs, privilegeIDs []int64, sign Sign) (bool, error) {
	if len(subjectIDs) == 0 || len(objectIDs) == 0 || len(privilegeIDs) == 0 {
		return false, nil
	}
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM hazel_rules
			WHERE sign = $1
			  AND subject_id = ANY($2)
			  AND object_id = ANY($3)
			  AND privilege_id = ANY($4)
		)`
	var ok bool
	err := db.QueryRowContext(ctx, q, string(sign), pqInt64Array(subjectIDs), pqInt64Array(objectIDs), pqInt64Array(privilegeIDs)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking %s rule existence: %w", sign, err)
	}
	return ok, nil
}

// ListRulesBySubject returns every rule whose subject_id matches,
// resolved to external ids, for the list_rules_by(subject) query.
func ListRulesBySubject(ctx context.Context, db Querier, subjectID int64) ([]RuleView, error) {
	return listRulesBy(ctx, db, "subject_id", subjectID)
}

// ListRulesByObject returns every rule whose object_id matches, resolved
// to external ids, for the list_rules_by(object) query.
func ListRulesByObject(ctx context.Context, db Querier, objectID int64) ([]RuleView, error) {
	return listRulesBy(ctx, db, "object_id", objectID)
}

// ListRulesByPrivilege returns every rule whose privilege_id matches,
// resolved to external ids, for the list_rules_by(privilege) query.
func ListRulesByPrivilege(ctx context.Context, db Querier, privilegeID int64) ([]RuleView, error) {
	return listRulesBy(ctx, db, "privilege_id", privilegeID)
}

func listRulesBy(ctx context.Context, db Querier, column string, id int64) ([]RuleView, error) {
	q := fmt.Sprintf(`
		SELECT s.ext_id, o.ext_id, p.ext_id, r.sign
		FROM hazel_rules r
		JOIN hazel_entities s ON s.id = r.subject_id
		JOIN hazel_entities o ON o.id = r.object_id
		JOIN hazel_entities p ON p.id = r.privilege_id
		WHERE r.%s = $1
		ORDER BY s.ext_id, o.ext_id, p.ext_id`, column)

	rows, err := db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("listing rules by %s: %w", column, err)
	}
	defer rows.Close()

	var views []RuleView
	for rows.Next() {
		var v RuleView
		var sign string
		if err := rows.Scan(&v.SubjectExtID, &v.ObjectExtID, &v.PrivilegeExtID, &sign); err != nil {
			return nil, fmt.Errorf("scanning rule row: %w", err)
		}
		v.Sign = Sign(sign)
		views = append(views, v)
	}
	return views, rows.Err()
}
