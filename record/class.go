package record

import "sort"

// ClassStat aggregates records of one class.
type ClassStat struct {
	ClassName string  `json:"className"`
	Count     int     `json:"count"`
	AvgSize   float64 `json:"avgSize"`
}

// ClassCounter accumulates per-class counts and decompressed sizes.
type ClassCounter struct {
	counts map[string]int
	sizes  map[string]int64
}

// NewClassCounter creates an empty counter.
func NewClassCounter() *ClassCounter {
	return &ClassCounter{counts: map[string]int{}, sizes: map[string]int64{}}
}

// Add counts one summary.
func (c *ClassCounter) Add(summary Summary) {
	c.counts[summary.ClassName]++
	c.sizes[summary.ClassName] += int64(summary.DecompressedSize)
}

// Stats returns classes ordered by count descending, then name.
func (c *ClassCounter) Stats() []ClassStat {
	out := make([]ClassStat, 0, len(c.counts))
	for name, count := range c.counts {
		out = append(out, ClassStat{ClassName: name, Count: count, AvgSize: float64(c.sizes[name]) / float64(count)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ClassName < out[j].ClassName
	})
	return out
}
