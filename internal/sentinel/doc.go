// Package sentinel provides a constant string error type for sentinel
// error declarations.
//
// Declaring sentinels as consts of this type keeps them immutable:
// nothing in the program can reassign them the way an errors.New var
// can be reassigned. The type remains fully compatible with errors.Is
// across wrapped error chains.
package sentinel
