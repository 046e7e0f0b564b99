// Package domain holds the report service's shared vocabulary: composed
// documents, page layouts and the error kinds the HTTP layer maps to status
// codes. It stays free of transport and rendering concerns.
package domain
