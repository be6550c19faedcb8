package service

import (
	"github.com/viant/odbview/index"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
	"github.com/viant/odbview/scan"
)

// Source names where a result came from.
type Source string

const (
	SourceStream Source = "stream"
	SourceIndex  Source = "index"
)

// StatsRequest defines inputs for database stats.
type StatsRequest struct {
	DBPath string
}

// PageRequest defines inputs for paged browsing.
type PageRequest struct {
	DBPath   string
	Page     int
	PageSize int
	// Detail decodes every field of each record on the page.
	Detail bool
}

// PageRecord is one record of a page.
type PageRecord struct {
	OID oid.ID `json:"oid"`
	record.Summary
	Detail *record.Detail `json:"detail,omitempty"`
}

// PageResult describes one page of records.
type PageResult struct {
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Records  []PageRecord `json:"records"`
	Columns  []string     `json:"columns"`
	Source   Source       `json:"source"`
	TimedOut bool         `json:"timedOut"`
}

// RecordRequest defines inputs for a single record lookup.
type RecordRequest struct {
	DBPath string
	OID    oid.ID
}

// RecordResult describes a looked up record.
type RecordResult struct {
	Found    bool         `json:"found"`
	Record   *scan.Record `json:"record,omitempty"`
	TimedOut bool         `json:"timedOut"`
}

// ClassesRequest defines inputs for the class aggregate.
type ClassesRequest struct {
	DBPath string
	// Scan ignores the index and runs a full streaming pass.
	Scan bool
}

// ClassesResult describes record counts per class.
type ClassesResult struct {
	Classes  []record.ClassStat `json:"classes"`
	Total    int                `json:"total"`
	Source   Source             `json:"source"`
	TimedOut bool               `json:"timedOut"`
}

// ClassPageRequest defines inputs for browsing one class.
type ClassPageRequest struct {
	DBPath     string
	Class      string
	Page       int
	PageSize   int
	KnownTotal *int
}

// ClassPageResult describes one page of records of a class.
type ClassPageResult struct {
	Class    string `json:"class"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Source   Source `json:"source"`
	scan.Result
}

// BuildRequest defines inputs for an index build.
type BuildRequest struct {
	DBPath string
	// Progress, when set, receives the committed row count.
	Progress func(rows int)
}

// CacheRequest identifies the index of a database.
type CacheRequest struct {
	DBPath string
}

// CacheInfo describes the index of a database.
type CacheInfo struct {
	index.Info
	Building bool   `json:"building"`
	BuildID  string `json:"buildId,omitempty"`
}
