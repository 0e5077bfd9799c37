// Package utils provides small parsing helpers shared by the HTTP handlers and
// the command line: positive ids, boolean flags and accession lists.
package utils
