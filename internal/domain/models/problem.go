package models

// ProblemKind classifies a validation or pipeline finding.
type ProblemKind string

const (
	ProblemFetchFailed        ProblemKind = "fetch_failed"
	ProblemCancelled          ProblemKind = "cancelled"
	ProblemReadFailed         ProblemKind = "read_failed"
	ProblemParseFailed        ProblemKind = "parse_failed"
	ProblemDuplicateDate      ProblemKind = "duplicate_date"
	ProblemOutOfWindow        ProblemKind = "out_of_window"
	ProblemMissingPeriods     ProblemKind = "missing_periods"
	ProblemMissingField       ProblemKind = "missing_field"
	ProblemEmptySeries        ProblemKind = "empty_series"
	ProblemSkippedMember      ProblemKind = "skipped_member"
	ProblemInsufficientSeries ProblemKind = "insufficient_series"
	ProblemAlignmentFailed    ProblemKind = "alignment_failed"
)

// Problem is one structured finding of a scenario run. It never aborts the run by itself.
type Problem struct {
	Series string      `json:"series"`
	Kind   ProblemKind `json:"kind"`
	Detail string      `json:"detail"`
}
