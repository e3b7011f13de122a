package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an error type backed by a string constant, so sentinel values can
// be declared with const. errors.Is works through wrapped chains because
// Error is comparable.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
