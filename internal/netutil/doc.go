// Package netutil provides network utility functions for pgliteenv.
// Its central type, PortRegistry, hands out TCP ports for engine endpoints:
// kernel-assigned ephemeral ports, explicitly requested ports, or the first
// free port in a configured range. Reserved ports are tracked across the
// process to prevent duplicate allocation from the TOCTOU race between
// concurrent managers.
package netutil
