package core

import "github.com/shopspring/decimal"

const (
	// DimensionTargetAccount buckets records by their target-account id.
	DimensionTargetAccount Dimension = "target_account"
	// DimensionCategory buckets records by their category id.
	DimensionCategory Dimension = "category"
)

// Sentinel bucket keys substituted when a record lacks the dimension's field.
const (
	KeyUnassigned    = "unassigned"
	KeyUncategorized = "uncategorized"
)

// UnknownName is rendered when a bucket key has no entry in the name lookup.
const UnknownName = "Unknown"

type (
	// Dimension selects which transaction field a breakdown is keyed on.
	Dimension string

	// Bucket is one aggregation key plus its accumulated absolute total.
	// Buckets live only for the duration of one aggregation run.
	Bucket struct {
		Key        string
		Name       string
		Total      decimal.Decimal
		Percentage float64 // share of the retained buckets' grand total
	}

	// BreakdownSummary is a ranked, top-10-capped breakdown for one run.
	BreakdownSummary struct {
		Dimension  Dimension
		Buckets    []Bucket // highest total first
		GrandTotal decimal.Decimal
	}
)

func (d Dimension) Valid() bool {
	return d == DimensionTargetAccount || d == DimensionCategory
}

// SentinelKey returns the bucket key used for records missing this dimension.
func (d Dimension) SentinelKey() string {
	if d == DimensionCategory {
		return KeyUncategorized
	}
	return KeyUnassigned
}

// SentinelName returns the display name for the sentinel bucket.
func (d Dimension) SentinelName() string {
	if d == DimensionCategory {
		return "Uncategorized"
	}
	return "Unassigned"
}

// Key resolves the bucket key for a transaction under this dimension,
// substituting the sentinel when the field is absent.
func (d Dimension) Key(t Transaction) string {
	switch d {
	case DimensionCategory:
		if t.CategoryID == "" {
			return KeyUncategorized
		}
		return t.CategoryID
	default:
		if t.TargetAccountID == "" {
			return KeyUnassigned
		}
		return t.TargetAccountID
	}
}
