// Package api serves the transcript editing API over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /api/transcripts/latest
//	GET  /api/transcripts/:id/conversation
//	PUT  /api/transcripts/:id
//	POST /api/speakers/rename
//
// Write routes require a bearer token when a JWT secret is configured.
// Errors are rendered as the errors package's ErrorResponse.
package api
