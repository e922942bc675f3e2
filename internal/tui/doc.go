// Package tui implements the interactive report viewer.
//
// The viewer shows one derived table at a time inside a scrollable
// viewport. Tabs switch tables and "y" copies the active table to the
// clipboard in the same CSV form that is written to disk.
package tui
