// Package logging centralizes slog construction and the structured field
// conventions used across quire. All components log through handlers built
// here so console and JSON output stay consistent.
package logging
