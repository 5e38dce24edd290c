// Package api holds the request and response types of the TechnoFlow HTTP API.
//
// # API Overview
//
// TechnoFlow provides a small RESTful API for:
//   - Submitting a techno generation to Udio, Suno, Replicate, a generic
//     async HTTP backend or the built-in demo backend, and waiting for it
//   - One-shot status lookups for jobs that outlived the wait budget
//   - Browsing generation history
//   - Health monitoring and metrics
//
// # Authentication
//
// When API keys are configured, endpoints other than health and version
// require the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// Provider credentials travel separately: in the request body for
// POST /generate and POST /test, and in the X-Provider-Token header for
// GET /status.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// Handlers carry swag annotations:
//
//	swag init -g cmd/technoflow/main.go -o api --parseDependency --parseInternal
package api
