// Package api defines the JSON wire types of the ActionGate HTTP API.
//
// # Endpoints
//
//	GET  /health         liveness plus per-provider configured flags
//	GET  /providers      provider descriptors (never credentials)
//	POST /get-actions    screenshot + UI tree + instruction -> validated actions
//	POST /add-provider   register or replace a custom provider
//
// Each path is also served under /api/ for older clients.
//
// # Errors
//
// Failures share one body shape:
//
//	{"success": false, "error": "...", "code": "PARSE_ERROR", "raw_response": "..."}
//
// raw_response is only present for PARSE_ERROR.
package api
