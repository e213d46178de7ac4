// Package domain models the Maji Ndogo agricultural survey data and the
// weather-station telemetry derived from it.
//
// # Field survey rows
//
// Field records come out of the survey database through a caller-supplied
// query, so their column set is not fixed here; the pipeline addresses them
// by column name. Two upstream defects are corrected downstream: a known
// pair of column labels is swapped relative to their true meaning, and
// elevations carry a meaningless sign.
//
// # Station messages
//
// Telemetry arrives as free-text messages, one row per message, for example:
//
//	"Rainfall: 23.5 mm measured at 06:00"
//	"Temperature at noon was 31 C"
//	"Pollution at 12.5 ug/m3"
//	"station offline"
//
// Measurement extraction is pattern-driven: configuration declares an
// ordered table of kind → regular expression. The first rule whose pattern
// matches wins, and the value comes from the first capture group that
// captured text — a single pattern may carry alternate groups for unit or
// phrasing variants. A message no rule matches yields the zero Measurement
// sentinel ("unknown"); such rows flow through normally and are excluded
// from aggregation.
//
// # Station summaries
//
// [Summarize] groups known-kind readings by (station, kind) and computes the
// arithmetic mean per group. Cells with no observations are absent rather
// than zero, and means are computed over sorted values so the result does
// not depend on input row order.
package domain
