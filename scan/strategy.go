package scan

import (
	"context"

	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/record"
)

// RawRecord is an undecoded record as emitted by the dump stream.
type RawRecord struct {
	OID      oid.ID `json:"oid"`
	KeyHex   string `json:"key"`
	ValueHex string `json:"-"`
}

// Value returns the payload bytes.
func (r RawRecord) Value() ([]byte, error) { return record.DecodeHex(r.ValueHex) }

// Record is a fully decoded record.
type Record struct {
	OID            oid.ID `json:"oid"`
	CompressedSize int    `json:"compressedSize"`
	record.Detail
}

// PageResult is the outcome of paged retrieval.
type PageResult struct {
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Records  []RawRecord `json:"records"`
	Scanned  int         `json:"scanned"`
	TimedOut bool        `json:"timedOut"`
}

// ClassQuery selects one page of records of a class.
type ClassQuery struct {
	Class    string
	Page     int
	PageSize int
	// KnownTotal, when set, lets the scan stop once the page is collected
	// or this many matches were seen.
	KnownTotal *int
}

// Result is the outcome of class-filtered or key-matched retrieval.
// TotalMatching is authoritative only when TotalExact is set.
type Result struct {
	Records       []Record `json:"records"`
	Columns       []string `json:"columns"`
	TotalMatching int      `json:"totalMatching"`
	TotalExact    bool     `json:"totalExact"`
	Scanned       int      `json:"scanned"`
	TimedOut      bool     `json:"timedOut"`
	// Missing lists target keys not found (key-matched retrieval only).
	Missing []string `json:"missing,omitempty"`
}

// ClassResult is the outcome of a full class aggregate scan.
type ClassResult struct {
	Classes  []record.ClassStat `json:"classes"`
	Total    int                `json:"total"`
	TimedOut bool               `json:"timedOut"`
}

type columnSet struct {
	names []string
	seen  map[string]bool
}

func (c *columnSet) add(detail record.Detail) {
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	for _, f := range detail.Fields {
		if f.Hash == field.ClassNameHash || c.seen[f.Name] {
			continue
		}
		c.seen[f.Name] = true
		c.names = append(c.names, f.Name)
	}
}

func (c *columnSet) list() []string {
	if c.names == nil {
		return []string{}
	}
	return c.names
}

// Page collects pageSize raw records after skipping page*pageSize records.
func (s *Scanner) Page(ctx context.Context, page, pageSize int) (*PageResult, error) {
	ret := &PageResult{Page: page, PageSize: pageSize, Records: []RawRecord{}}
	if pageSize <= 0 {
		return ret, nil
	}
	skip := page * pageSize
	timedOut, err := s.run(ctx, s.timeouts.Page, func(index int, pair dump.Pair) (bool, error) {
		ret.Scanned = index + 1
		if index < skip {
			return true, nil
		}
		id, _ := oid.FromKeyHex(pair.Key)
		ret.Records = append(ret.Records, RawRecord{OID: id, KeyHex: pair.Key, ValueHex: pair.Value})
		return len(ret.Records) < pageSize, nil
	})
	if err != nil {
		return nil, err
	}
	ret.TimedOut = timedOut
	return ret, nil
}

// ClassFiltered summarizes every record and fully decodes only the matches
// that fall on the requested page.
func (s *Scanner) ClassFiltered(ctx context.Context, query ClassQuery) (*Result, error) {
	ret := &Result{Records: []Record{}}
	if query.PageSize <= 0 {
		ret.Columns = []string{}
		return ret, nil
	}
	columns := &columnSet{}
	skip := query.Page * query.PageSize
	matches := 0
	stoppedEarly := false
	timedOut, err := s.run(ctx, s.timeouts.Filter, func(index int, pair dump.Pair) (bool, error) {
		ret.Scanned = index + 1
		id, value := decodePair(pair)
		summary := record.ParseSummary(value)
		if summary.ClassName != query.Class {
			return true, nil
		}
		matches++
		if matches > skip && len(ret.Records) < query.PageSize {
			detail := record.ParseDetail(value, s.dict)
			columns.add(detail)
			ret.Records = append(ret.Records, Record{OID: id, CompressedSize: len(value), Detail: detail})
		}
		if query.KnownTotal != nil && (len(ret.Records) >= query.PageSize || matches >= *query.KnownTotal) {
			stoppedEarly = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	ret.Columns = columns.list()
	ret.TimedOut = timedOut
	ret.TotalMatching = matches
	switch {
	case query.KnownTotal != nil:
		if *query.KnownTotal > matches {
			ret.TotalMatching = *query.KnownTotal
		}
		ret.TotalExact = true
	case !timedOut && !stoppedEarly:
		ret.TotalExact = true
	}
	return ret, nil
}

// KeyMatched decodes only records whose key is in keys and stops once all
// of them were found.
func (s *Scanner) KeyMatched(ctx context.Context, keys []string) (*Result, error) {
	ret := &Result{Records: []Record{}}
	targets := make(map[string]bool, len(keys))
	for _, key := range keys {
		targets[oid.NormalizeKeyHex(key)] = false
	}
	if len(targets) == 0 {
		ret.Columns = []string{}
		ret.TotalExact = true
		return ret, nil
	}
	columns := &columnSet{}
	timedOut, err := s.run(ctx, s.timeouts.Filter, func(index int, pair dump.Pair) (bool, error) {
		ret.Scanned = index + 1
		key := oid.NormalizeKeyHex(pair.Key)
		found, ok := targets[key]
		if !ok || found {
			return true, nil
		}
		targets[key] = true
		id, value := decodePair(pair)
		detail := record.ParseDetail(value, s.dict)
		columns.add(detail)
		ret.Records = append(ret.Records, Record{OID: id, CompressedSize: len(value), Detail: detail})
		return len(ret.Records) < len(targets), nil
	})
	if err != nil {
		return nil, err
	}
	ret.Columns = columns.list()
	ret.TimedOut = timedOut
	ret.TotalMatching = len(ret.Records)
	ret.TotalExact = !timedOut
	for _, key := range keys {
		if normalized := oid.NormalizeKeyHex(key); !targets[normalized] {
			ret.Missing = append(ret.Missing, normalized)
			targets[normalized] = true
		}
	}
	return ret, nil
}

// Classes aggregates every record by class with one full pass.
func (s *Scanner) Classes(ctx context.Context) (*ClassResult, error) {
	counter := record.NewClassCounter()
	total := 0
	timedOut, err := s.Summaries(ctx, func(index int, _ oid.ID, summary record.Summary) error {
		total = index + 1
		counter.Add(summary)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ClassResult{Classes: counter.Stats(), Total: total, TimedOut: timedOut}, nil
}
