// Package report turns scenario aggregates into the four derived tables
// and writes them as CSV files, an XLSX workbook or terminal tables.
package report
