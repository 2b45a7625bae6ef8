package retail

import (
	"math"
)

// COGSRepairFactor is applied when cost of goods sold exceeds the sale
// total: the record is repaired to cogs = totalSale * COGSRepairFactor
// instead of being dropped.
const COGSRepairFactor = 0.7

// Issue identifies a data-quality issue category.
type Issue string

const (
	IssueCOGSExceedsTotal   Issue = "cogs_exceeds_total"
	IssueNonPositiveAmounts Issue = "non_positive_amounts"
	IssueSuspiciousAge      Issue = "suspicious_age"
	IssueArithmeticMismatch Issue = "arithmetic_mismatch"
)

// QualityFlag references a retained record that needs manual review.
type QualityFlag struct {
	RecordID int64 `json:"record_id"`
	RowIndex int   `json:"row_index"`
	Issue    Issue `json:"issue"`
}

// QualityReport summarizes what the validator repaired, dropped, and
// flagged. Flagged records remain in the clean set.
type QualityReport struct {
	TotalInput         int           `json:"total_input"`
	Retained           int           `json:"retained"`
	Dropped            int           `json:"dropped"`
	RepairedCOGS       int           `json:"repaired_cogs"`
	DroppedNonPositive int           `json:"dropped_non_positive"`
	FlaggedAge         int           `json:"flagged_age"`
	FlaggedArithmetic  int           `json:"flagged_arithmetic"`
	Flags              []QualityFlag `json:"flags,omitempty"`
}

// QualityOptions controls validator policy beyond the fixed repair and
// drop rules. Flag-only issues (suspicious age, arithmetic mismatch) are
// reported but retained by default; ExcludeFlagged turns them into drops
// for callers that want a strictly consistent set.
type QualityOptions struct {
	ExcludeFlagged bool
}

// Validate applies the data-quality rules in order and returns a new
// corrected slice plus a report. The input is never mutated.
//
// Rule order matters: the cogs repair runs before the drop check so that a
// record whose only defect is cogs > totalSale is repaired, never removed.
func Validate(raw []Transaction, opts QualityOptions) ([]Transaction, QualityReport) {
	report := QualityReport{TotalInput: len(raw)}
	clean := make([]Transaction, 0, len(raw))

	for i, rec := range raw {
		// Rule 1: repair cost exceeding the sale total.
		if rec.COGS > rec.TotalSale {
			rec.COGS = rec.TotalSale * COGSRepairFactor
			report.RepairedCOGS++
		}

		// Rule 2: drop structurally unusable rows.
		if rec.Quantity <= 0 || rec.UnitPrice <= 0 || rec.TotalSale <= 0 {
			report.DroppedNonPositive++
			report.Dropped++
			continue
		}

		// Rule 3: flag-only issues, surfaced for manual review.
		flagged := false
		if rec.Age <= 0 || rec.Age > 120 {
			report.FlaggedAge++
			report.Flags = append(report.Flags, QualityFlag{
				RecordID: rec.ID, RowIndex: i, Issue: IssueSuspiciousAge,
			})
			flagged = true
		}
		if math.Abs(float64(rec.Quantity)*rec.UnitPrice-rec.TotalSale) > ArithmeticTolerance {
			report.FlaggedArithmetic++
			report.Flags = append(report.Flags, QualityFlag{
				RecordID: rec.ID, RowIndex: i, Issue: IssueArithmeticMismatch,
			})
			flagged = true
		}

		if flagged && opts.ExcludeFlagged {
			report.Dropped++
			continue
		}

		clean = append(clean, rec)
	}

	report.Retained = len(clean)
	return clean, report
}
