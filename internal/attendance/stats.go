package attendance

import (
	"math"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// DayStats is the attendance of one class day.
type DayStats struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	Rate    int    `json:"rate"`
}

// Report is a teacher's attendance over the stats window.
type Report struct {
	TotalStudents int        `json:"totalStudents"`
	Stats         []DayStats `json:"stats"`
}

// Aggregate buckets records by the day their code was issued, in loc.
// A day appears when a code was issued on it or a record points at a code
// issued on it. total is the current roster size and applies to every day.
func Aggregate(codes []Code, records []Record, total int, loc *time.Location) []DayStats {
	present := make(map[string]int)
	for _, c := range codes {
		day := c.CreatedAt.In(loc).Format(dayLayout)
		if _, ok := present[day]; !ok {
			present[day] = 0
		}
	}
	for _, rec := range records {
		present[rec.CodeCreatedAt.In(loc).Format(dayLayout)]++
	}

	out := make([]DayStats, 0, len(present))
	for day, n := range present {
		out = append(out, DayStats{
			Date:    day,
			Present: n,
			Absent:  total - n,
			Rate:    rate(n, total),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func rate(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}
