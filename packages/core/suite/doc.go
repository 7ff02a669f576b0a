// Package suite loads suitecast suite files.
//
// A suite file is YAML: a list of named test sets, each holding shell
// commands whose exit code decides the outcome. Files are checked against a
// JSON schema before they are decoded, so a typo in a key is reported with
// its location instead of being silently ignored.
package suite
