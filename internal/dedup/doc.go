// Package dedup removes duplicate rows from an in-memory tabular dataset.
//
// This package holds the duplicate-elimination engine and its validation
// contract. It has no I/O, logging or process-wide state: every call is a pure
// function of (dataset, key columns, keep policy).
//
// # Grouping
//
// Each row's grouping key is the tuple of its values in the key columns. Two
// rows are in the same group when their keys are equal value by value. Null
// equals null, and numbers compare by value (1 == 1.0). An empty key list gives
// every row the same empty key, so the whole dataset forms a single group; [Run]
// reports this as [WarnDegenerateKey].
//
// When a dataset has two columns with the same name, the last occurrence of
// that name supplies the key value. [Run] reports such names as
// [WarnDuplicateColumns].
//
// # Keep Policies
//
//   - [KeepFirst]: keep the earliest row of each group
//   - [KeepLast]: keep the latest row of each group
//   - [KeepNone]: drop every row of a group with more than one member
//
// Survivors are always emitted in their original relative order.
//
// # Entry Points
//
// [Run] is the checked entry point used by callers: it validates the policy and
// key columns, collects data-quality warnings and then calls [Deduplicate].
// [Deduplicate] itself assumes validated input.
//
//	res, err := dedup.Run(ds, []string{"Date", "Machine No."}, dedup.KeepFirst)
//	if err != nil {
//	    var mc *dedup.MissingColumnsError
//	    if errors.As(err, &mc) { ... }
//	}
//	fmt.Println(res.Summary.RemovedRows)
package dedup
