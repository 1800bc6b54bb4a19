// Package api defines the wire-level error types returned by keygate.
//
// Errors follow the OpenAI error envelope so that existing client libraries
// surface them unchanged:
//
//	{"error": {"message": "...", "type": "authentication_error", "code": "..."}}
//
// The package has zero external dependencies and performs no I/O.
package api
