// Package service provides reusable read-only operations over an object
// database dump: stats, paged and class-filtered browsing, single record
// lookup, and management of the persistent class index.
//
// This package is intended for embedding odbview capabilities into other programs
// without shelling out to the CLI.
package service
