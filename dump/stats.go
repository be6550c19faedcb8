package dump

import (
	"io"
	"strconv"
	"strings"
)

// Engine is the storage engine of the source database.
type Engine string

const (
	EngineUnknown Engine = "unknown"
	EngineBtree   Engine = "btree"
	EngineHash    Engine = "hash"
)

// Stats holds database metadata reported by the stat utility.
type Stats struct {
	RecordCount int64  `json:"recordCount"`
	Engine      Engine `json:"engine"`
	PageSize    int64  `json:"pageSize"`
	ByteOrder   string `json:"byteOrder"`
}

var recordCountSuffixes = []string{
	"Number of keys in the database",
	"Number of unique keys in the tree",
	"Number of keys in the tree",
}

// ParseStats reads "value<TAB>label" lines. Unrecognized lines are ignored.
func ParseStats(text string) *Stats {
	ret := &Stats{Engine: EngineUnknown}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		value, label, ok := splitStat(line)
		if !ok {
			continue
		}
		switch {
		case strings.HasSuffix(label, "Btree magic number"):
			ret.Engine = EngineBtree
		case strings.HasSuffix(label, "Hash magic number"):
			ret.Engine = EngineHash
		case strings.HasSuffix(label, "Underlying database page size"):
			ret.PageSize = parseCount(value)
		case strings.HasSuffix(label, "Byte order"):
			ret.ByteOrder = value
		default:
			for _, suffix := range recordCountSuffixes {
				if strings.HasSuffix(label, suffix) {
					ret.RecordCount = parseCount(value)
					break
				}
			}
		}
	}
	return ret
}

func splitStat(line string) (string, string, bool) {
	if i := strings.IndexByte(line, '\t'); i != -1 {
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// parseCount accepts plain numbers and the "123K"/"4M" short forms.
func parseCount(value string) int64 {
	value = strings.TrimSpace(value)
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "K"):
		multiplier, value = 1000, strings.TrimSuffix(value, "K")
	case strings.HasSuffix(value, "M"):
		multiplier, value = 1000000, strings.TrimSuffix(value, "M")
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}

// StatsFromStream derives stats from a captured dump by reading its header
// and counting records. Byte order is not recorded in dump output.
func StatsFromStream(s *Stream) (*Stats, error) {
	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	header := s.Header()
	ret := &Stats{Engine: EngineUnknown, RecordCount: int64(s.Records())}
	switch header["type"] {
	case "btree":
		ret.Engine = EngineBtree
	case "hash":
		ret.Engine = EngineHash
	}
	ret.PageSize = parseCount(header["db_pagesize"])
	return ret, nil
}
