// Package encompass counts features from one sorted genomic stream within
// the features of another, stratifying the counts into a nested table.
//
// The Counter merge-joins the two streams in linear time, relying on both
// being sorted by (chromosome, start, end).  Every overlap and exit event
// is reported to a Handler, whose stratifier pipeline derives one table
// dimension per layer and applies the configured ambiguity handling: a
// feature whose key differs across the encompassing contexts it was seen
// in can be counted in every context (tolerate), dropped (ignore), or
// collapsed into a reserved ambiguous key (record).  A Writer serializes
// the table either all at once or incrementally, one row per feature as
// the join guarantees the feature cannot be seen again.
package encompass
