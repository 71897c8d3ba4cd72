// Package doctor runs belt-and-suspenders health checks against a live
// hazel store: supremum presence, closure/edge consistency, and rule
// sign uniqueness. None of these run on the decision hot path; they
// exist for the "hazel doctor" CLI command and for tests that want to
// assert a fixture is in a sane state.
package doctor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/dag"
)

// Status is the outcome of a single check.
type Status int

const (
	// StatusPass indicates the check found nothing wrong.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical inconsistency.
	StatusWarn
	// StatusFail indicates a defect that will cause incorrect decisions.
	StatusFail
)

// String renders the status as "pass", "warn", or "fail".
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a terminal status glyph.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Category string
	Name     string
	Status   Status
	Message  string
	Details  string
}

// Report collects every check run in one Doctor.Run call.
type Report struct {
	Checks []CheckResult

	Passed   int
	Warnings int
	Errors   int
}

// AddCheck appends a result and updates the summary counts.
func (r *Report) AddCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
	switch c.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// HasErrors reports whether any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Print renders the report to w, grouped by category.
func (r *Report) Print(w io.Writer, verbose bool) {
	categories := make(map[string][]CheckResult)
	var order []string
	for _, c := range r.Checks {
		if _, ok := categories[c.Category]; !ok {
			order = append(order, c.Category)
		}
		categories[c.Category] = append(categories[c.Category], c)
	}

	for _, cat := range order {
		fmt.Fprintf(w, "\n%s\n", cat)
		for _, c := range categories[cat] {
			fmt.Fprintf(w, "  %s %s\n", c.Status.Symbol(), c.Message)
			if verbose && c.Details != "" {
				for _, line := range strings.Split(c.Details, "\n") {
					fmt.Fprintf(w, "      %s\n", line)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n", r.Passed, r.Warnings, r.Errors)
}

// Doctor runs health checks against a hazel.Querier.
type Doctor struct {
	db hazel.Querier
}

// New constructs a Doctor over db.
func New(db hazel.Querier) *Doctor {
	return &Doctor{db: db}
}

// Run executes every check and returns the assembled report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkSupremums(ctx, report)
	if err := d.checkClosureConsistency(ctx, report); err != nil {
		return nil, fmt.Errorf("checking closure consistency: %w", err)
	}
	if err := d.checkRuleSignUniqueness(ctx, report); err != nil {
		return nil, fmt.Errorf("checking rule sign uniqueness: %w", err)
	}

	return report, nil
}

func (d *Doctor) checkSupremums(ctx context.Context, report *Report) {
	for _, kind := range []hazel.Kind{hazel.Subject, hazel.Object, hazel.Privilege} {
		_, err := hazel.LookupEntity(ctx, d.db, kind, hazel.SupremumExtID)
		if err != nil {
			report.AddCheck(CheckResult{
				Category: "supremum",
				Name:     kind.String(),
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s supremum is missing", kind),
				Details:  err.Error(),
			})
			continue
		}
		report.AddCheck(CheckResult{
			Category: "supremum",
			Name:     kind.String(),
			Status:   StatusPass,
			Message:  fmt.Sprintf("%s supremum present", kind),
		})
	}
}

// edgeClosureAdapter adapts the package-level edge/closure query
// functions to internal/dag's EdgeLister and ClosureLister interfaces
// for a single kind, so Validate can be run without depending on the
// root package's unexported storeEdgeLister.
type edgeClosureAdapter struct {
	db   hazel.Querier
	kind hazel.Kind
}

func (a edgeClosureAdapter) Children(ctx context.Context, id int64) ([]int64, error) {
	return hazel.Children(ctx, a.db, a.kind, id)
}

func (a edgeClosureAdapter) Parents(ctx context.Context, id int64) ([]int64, error) {
	return hazel.Parents(ctx, a.db, a.kind, id)
}

func (a edgeClosureAdapter) Descendants(ctx context.Context, id int64) ([]int64, error) {
	return hazel.Descendants(ctx, a.db, a.kind, id)
}

// checkClosureConsistency cross-checks the persisted closure table
// against a fresh BFS over the edges table, rooted at each kind's
// supremum. Any symmetric difference means the closure index has
// drifted from the edges it is supposed to summarize.
func (d *Doctor) checkClosureConsistency(ctx context.Context, report *Report) error {
	for _, kind := range []hazel.Kind{hazel.Subject, hazel.Object, hazel.Privilege} {
		supremum, err := hazel.LookupEntity(ctx, d.db, kind, hazel.SupremumExtID)
		if err != nil {
			// Already reported as a failed supremum check; skip the
			// closure check for this kind rather than double-report.
			continue
		}

		adapter := edgeClosureAdapter{db: d.db, kind: kind}
		diff, err := dag.Validate(ctx, adapter, adapter, supremum.InternalID)
		if err != nil {
			return err
		}

		if len(diff) == 0 {
			report.AddCheck(CheckResult{
				Category: "closure",
				Name:     kind.String(),
				Status:   StatusPass,
				Message:  fmt.Sprintf("%s closure matches edges", kind),
			})
			continue
		}

		report.AddCheck(CheckResult{
			Category: "closure",
			Name:     kind.String(),
			Status:   StatusFail,
			Message:  fmt.Sprintf("%s closure disagrees with edges on %d node(s)", kind, len(diff)),
			Details:  fmt.Sprintf("mismatched ids: %v", diff),
		})
	}
	return nil
}

// checkRuleSignUniqueness verifies no (subject, object, privilege)
// triple carries more than one sign. The schema's primary key on the
// triple already forbids two rows for the same triple, even for writes
// that bypass PutRule, so this check cannot fail while that key is in
// place; it confirms the invariant out-of-band.
func (d *Doctor) checkRuleSignUniqueness(ctx context.Context, report *Report) error {
	const q = `
		SELECT subject_id, object_id, privilege_id, COUNT(DISTINCT sign)
		FROM hazel_rules
		GROUP BY subject_id, object_id, privilege_id
		HAVING COUNT(DISTINCT sign) > 1`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("querying rule sign uniqueness: %w", err)
	}
	defer rows.Close()

	var offending int
	for rows.Next() {
		var subjectID, objectID, privilegeID int64
		var signCount int
		if err := rows.Scan(&subjectID, &objectID, &privilegeID, &signCount); err != nil {
			return err
		}
		offending++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if offending == 0 {
		report.AddCheck(CheckResult{
			Category: "rules",
			Name:     "sign-uniqueness",
			Status:   StatusPass,
			Message:  "every rule triple has exactly one sign",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "rules",
		Name:     "sign-uniqueness",
		Status:   StatusFail,
		Message:  fmt.Sprintf("%d rule triple(s) carry both a positive and a negative rule", offending),
	})
	return nil
}
