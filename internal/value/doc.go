// Package value provides the tagged value variant stored in the dynamic
// field bags of events and catalogues.
//
// This package imports nothing internal. Every other internal package that
// handles attribute values imports value; value stays the foundational layer.
//
// Key design constraints:
//   - Value is sealed: only String, Int, Float, Bool, Time and Set implement it
//   - Floats must be finite (NaN and Inf are rejected by From)
//   - Times are UTC and fit in int64 nanoseconds since the Unix epoch
//   - Strings are NFC normalized on the way in (From) and on the way out
//     (MarshalCanonical), so export and import preserve equality
package value
