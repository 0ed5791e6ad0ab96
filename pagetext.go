// Package pagetext extracts human-readable text from a single rendered web
// page and serves it as structured data over HTTP.
//
// This package contains domain types, the extraction algorithm and
// interfaces following Ben Johnson's Standard Package Layout.
// Implementations live in subdirectories named after their primary
// dependency (e.g., rod/, goquery/, zerolog/).
package pagetext
