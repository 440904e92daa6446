package pgliteenv

import "github.com/giantswarm/pgliteenv/internal/nodedeps"

// InstallPolicy controls whether Start provisions the engine's node modules
// (the PGlite packages) when they are missing from the work directory.
//
// InstallPolicy is a type alias (not a named type) so that the underlying
// [nodedeps.Policy] methods are part of the public API:
//
//   - IsValid reports whether the value is a recognized policy.
//   - String returns the policy name (implements [fmt.Stringer]).
type InstallPolicy = nodedeps.Policy

const (
	// InstallAuto runs npm install only when the engine's node modules are
	// missing. This is the default policy.
	InstallAuto = nodedeps.PolicyAuto

	// InstallRequire fails Start when the node modules are missing instead
	// of installing them. Use in offline or hermetic environments where an
	// unexpected install should be an error.
	InstallRequire = nodedeps.PolicyRequire

	// InstallSkip never checks or installs node modules. Use when the work
	// directory is pre-provisioned by other means.
	InstallSkip = nodedeps.PolicySkip
)
