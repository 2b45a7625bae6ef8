// Package retail implements the analytical core over validated retail
// transaction data: data-quality repair, grouped aggregation, window and
// ranking operations, RFM customer segmentation, monthly cohort retention,
// and statistical outlier detection.
//
// Every operation is a pure function of its inputs. The dataset is treated
// as frozen once validation completes, so concurrent callers may compute
// any number of views over the same snapshot without locking.
//
// The window and ranking operations (Rank, PercentRank, NTile, Lag, moving
// aggregates) are the central abstraction: they replace database window
// function semantics with explicit, independently testable functions over
// an ordered partition with deterministic tie-breaking.
package retail
