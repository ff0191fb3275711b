// Package core is a small, stable facade over shipsafe's internal packages for
// programs that embed the scanner. It exposes segmentation, candidate
// extraction, the flat record codec and an offline directory scan.
//
// Example:
//
//	rep, err := core.Scan(ctx, ".", core.Options{})
//	if err != nil { /* handle */ }
//	_ = core.MarshalReport(os.Stdout, rep)
package core
