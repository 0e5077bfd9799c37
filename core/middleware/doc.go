// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation protecting every route except the skipped paths.
//   - rayid: assigns a request id (RayID), stored in the fiber locals and echoed
//     in the X-Ray-ID response header for tracing.
//
// These middleware components are registered globally by the start command.
package middleware
