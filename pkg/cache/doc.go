// Package cache holds S-PIN security tokens for the lifetime of a process.
//
// Security-sensitive operations (locking, the auxiliary heater) require a security token that the
// backend issues after the client answers an S-PIN challenge. Tokens stay valid for a few minutes,
// so a [TokenCache] lets consecutive commands in one session (e.g., the interactive shell) skip the
// challenge round-trip.
//
// Tokens are never exported. A TokenCache lives in memory only and is discarded when the process
// exits.
//
// The same TokenCache may safely be used with different VINs and from multiple goroutines.
package cache
