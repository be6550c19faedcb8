package service

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/viant/odbview/dump"
	"github.com/viant/odbview/field"
	"github.com/viant/odbview/index"
	"github.com/viant/odbview/record"
	"github.com/viant/odbview/scan"
)

// Stats reports record count, engine and page size of a database.
func (s *Service) Stats(ctx context.Context, req *StatsRequest) (*dump.Stats, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if s.fromFile {
		stream, err := s.opener(req.DBPath)(ctx)
		if err != nil {
			return nil, err
		}
		defer stream.Close()
		return dump.StatsFromStream(stream)
	}
	statsCtx, cancel := context.WithTimeout(ctx, s.statsTimeout)
	defer cancel()
	return s.tool.Stats(statsCtx, req.DBPath)
}

// Page returns one page of records. Summary pages come from the index when
// one is built; otherwise the dump stream is scanned.
func (s *Service) Page(ctx context.Context, req *PageRequest) (*PageResult, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if req.Page < 0 {
		req.Page = 0
	}
	ret := &PageResult{Page: req.Page, PageSize: req.PageSize, Records: []PageRecord{}, Columns: []string{}}
	if req.PageSize <= 0 {
		return ret, nil
	}
	dbPath := normalizePath(req.DBPath)
	if !req.Detail && s.indexed(dbPath) {
		store, err := index.Open(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		rows, err := store.Page(ctx, req.Page, req.PageSize)
		if err != nil {
			return nil, err
		}
		ret.Source = SourceIndex
		for _, row := range rows {
			ret.Records = append(ret.Records, PageRecord{OID: row.OID, Summary: record.Summary{
				ClassName:        row.ClassName,
				FieldCount:       row.FieldCount,
				CompressedSize:   row.CompressedSize,
				DecompressedSize: row.DecompressedSize,
			}})
		}
		return ret, nil
	}
	page, err := s.scanner(dbPath).Page(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	ret.Source = SourceStream
	ret.TimedOut = page.TimedOut
	seen := map[string]bool{}
	for _, raw := range page.Records {
		value, err := raw.Value()
		if err != nil {
			value = nil
		}
		item := PageRecord{OID: raw.OID, Summary: record.ParseSummary(value)}
		if req.Detail {
			detail := record.ParseDetail(value, s.dict)
			item.Detail = &detail
			for _, f := range detail.Fields {
				if f.Hash == field.ClassNameHash || seen[f.Name] {
					continue
				}
				seen[f.Name] = true
				ret.Columns = append(ret.Columns, f.Name)
			}
		}
		ret.Records = append(ret.Records, item)
	}
	return ret, nil
}

// Record looks up one record by object identifier.
func (s *Service) Record(ctx context.Context, req *RecordRequest) (*RecordResult, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	result, err := s.scanner(normalizePath(req.DBPath)).KeyMatched(ctx, []string{req.OID.KeyHex()})
	if err != nil {
		return nil, err
	}
	ret := &RecordResult{TimedOut: result.TimedOut}
	if len(result.Records) > 0 {
		ret.Found = true
		ret.Record = &result.Records[0]
	}
	return ret, nil
}

// Classes aggregates record counts per class, from the index when built.
func (s *Service) Classes(ctx context.Context, req *ClassesRequest) (*ClassesResult, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	dbPath := normalizePath(req.DBPath)
	if !req.Scan && s.indexed(dbPath) {
		key := resultKey(dbPath, "classes")
		if cached, ok := s.classes.Get(key); ok {
			ret := *cached
			return &ret, nil
		}
		store, err := index.Open(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		classes, err := store.Classes(ctx)
		if err != nil {
			return nil, err
		}
		ret := &ClassesResult{Classes: classes, Source: SourceIndex}
		for _, class := range classes {
			ret.Total += class.Count
		}
		s.classes.Set(key, ret)
		copied := *ret
		return &copied, nil
	}
	started := time.Now()
	result, err := s.scanner(dbPath).Classes(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("db", dbPath).Int("records", result.Total).Bool("timedOut", result.TimedOut).
		Dur("elapsed", time.Since(started)).Msg("class scan finished")
	return &ClassesResult{Classes: result.Classes, Total: result.Total, Source: SourceStream, TimedOut: result.TimedOut}, nil
}

// ClassPage returns one fully decoded page of records of a class. With an
// index, the page keys are resolved first and only those records decoded.
func (s *Service) ClassPage(ctx context.Context, req *ClassPageRequest) (*ClassPageResult, error) {
	if req == nil || req.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if req.Class == "" {
		return nil, errors.New("class is required")
	}
	if req.Page < 0 {
		req.Page = 0
	}
	dbPath := normalizePath(req.DBPath)
	ret := &ClassPageResult{Class: req.Class, Page: req.Page, PageSize: req.PageSize}
	if req.PageSize <= 0 {
		ret.Records = []scan.Record{}
		ret.Columns = []string{}
		return ret, nil
	}
	scanner := s.scanner(dbPath)
	if s.indexed(dbPath) {
		keys, err := s.classKeys(ctx, dbPath, req.Class, req.Page, req.PageSize)
		if err != nil {
			return nil, err
		}
		result, err := scanner.KeyMatched(ctx, keys.keys)
		if err != nil {
			return nil, err
		}
		result.TotalMatching = keys.total
		result.TotalExact = true
		ret.Result = *result
		ret.Source = SourceIndex
		return ret, nil
	}
	result, err := scanner.ClassFiltered(ctx, scan.ClassQuery{
		Class:      req.Class,
		Page:       req.Page,
		PageSize:   req.PageSize,
		KnownTotal: req.KnownTotal,
	})
	if err != nil {
		return nil, err
	}
	ret.Result = *result
	ret.Source = SourceStream
	return ret, nil
}

func (s *Service) classKeys(ctx context.Context, dbPath, class string, page, pageSize int) (*classKeys, error) {
	key := resultKey(dbPath, "keys", class, strconv.Itoa(page), strconv.Itoa(pageSize))
	if cached, ok := s.keys.Get(key); ok {
		return cached, nil
	}
	store, err := index.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	keys, total, err := store.ClassKeys(ctx, class, page, pageSize)
	if err != nil {
		return nil, err
	}
	ret := &classKeys{keys: keys, total: total}
	s.keys.Set(key, ret)
	return ret, nil
}
