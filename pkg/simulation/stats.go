package simulation

// HistogramBuckets is the number of hop-count buckets; the last one
// collects every route at least that long.
const HistogramBuckets = 20

// Stats accumulates run-wide counters.
type Stats struct {
	Spawned   int `json:"spawned"`
	Discarded int `json:"discarded"` // no route between the drawn nodes
	Crowded   int `json:"crowded"`   // entry edge too busy
	Arrived   int `json:"arrived"`

	MovingSteps int `json:"moving_steps"`
	JammedSteps int `json:"jammed_steps"`

	TotalHops    int                   `json:"total_hops"`
	HopHistogram [HistogramBuckets]int `json:"hop_histogram"`
}

func (s *Stats) arrive(hops int) {
	s.Arrived++
	s.TotalHops += hops
	b := hops
	if b >= HistogramBuckets {
		b = HistogramBuckets - 1
	}
	if b < 0 {
		b = 0
	}
	s.HopHistogram[b]++
}

// AvgHops is the mean hop count of completed routes.
func (s Stats) AvgHops() float64 {
	if s.Arrived == 0 {
		return 0
	}
	return float64(s.TotalHops) / float64(s.Arrived)
}
