// Package export reads and writes tracking.txt, the tab-separated text
// form of the tracking table. The header and column order match the
// tracking table of storage/sqlite so either form can be rebuilt from the
// other.
package export
