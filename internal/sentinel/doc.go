// Package sentinel provides a string-backed error type for declaring
// constant sentinel errors.
package sentinel
