// Package server holds the HTTP server configuration.
//
// The start command owns the server lifecycle; this package only defines the
// port, the API key protecting every route and the path metrics are served on.
package server
