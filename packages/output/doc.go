// Package output renders test lifecycle events.
//
// The Formatter produces two shapes from the same event:
//   - Text: the colorized console line, built from the template table
//   - Envelope: a {success, category, object} value for JSON transport
//
// Decode reverses an envelope so a remote observer can print it with the
// same Formatter the local terminal uses.
package output
