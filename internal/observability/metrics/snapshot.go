package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// OperationsSnapshot summarizes booking operation counters for the operator
// summary endpoint.
type OperationsSnapshot struct {
	Operations map[string]map[string]int64 `json:"operations"`
	CacheHits  int64                       `json:"cacheHits"`
	CacheMiss  int64                       `json:"cacheMisses"`
	Coalesced  int64                       `json:"cacheCoalesced"`
}

// Snapshot reads the booking counters from gatherer.
func Snapshot(gatherer prometheus.Gatherer) OperationsSnapshot {
	out := OperationsSnapshot{Operations: map[string]map[string]int64{}}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case namespace + "_bookings_operations_total":
			for _, metric := range mf.Metric {
				op, outcome := labelValue(metric, "operation"), labelValue(metric, "outcome")
				if out.Operations[op] == nil {
					out.Operations[op] = map[string]int64{}
				}
				out.Operations[op][outcome] += int64(metric.GetCounter().GetValue())
			}
		case namespace + "_slots_cache_lookups_total":
			for _, metric := range mf.Metric {
				v := int64(metric.GetCounter().GetValue())
				switch labelValue(metric, "result") {
				case "hit":
					out.CacheHits += v
				case "miss":
					out.CacheMiss += v
				case "coalesced":
					out.Coalesced += v
				}
			}
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	if metric == nil {
		return ""
	}
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
