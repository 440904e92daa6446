package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an error type backed by a string constant. Values can be
// declared as const, unlike errors.New sentinels which live in mutable
// package vars.
//
// Error is comparable, so the == fallback used by errors.Is matches
// wrapped chains without any Is/As methods.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
