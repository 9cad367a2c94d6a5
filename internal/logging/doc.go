// Package logging wires log/slog for the flashd daemon and CLI.
//
// It provides a console handler (timestamp, level, component prefix,
// key=value attrs) and a JSON handler with stable key names, plus attr
// helpers and standardized field constants so every component logs the
// same shape.
package logging
