// Package api exposes the query and refresh services as a JSON HTTP API.
//
// Every response uses the same envelope: status, data, metadata and, on
// failure, a coded error. Unknown metrics encode as null. Query errors map
// to 400, missing entities to 404 and source failures to 502.
package api
