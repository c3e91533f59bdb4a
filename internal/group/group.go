// Package group partitions a set of raw frames into sub-groups judged
// compatible for combination, using proximity of their observation times.
package group

import (
	"sort"
	"time"
)

// Group is one compatible subset. Indices refer to the caller's frame list;
// Times carry the matching observation timestamps in ascending order.
type Group struct {
	Indices []int
	Times   []time.Time
}

// Size returns the number of member frames.
func (g Group) Size() int { return len(g.Indices) }

// ByTime partitions frames by observation-time proximity. A threshold of
// zero or less disables matching: every frame lands in one group in its
// original order. Otherwise frames sort by ascending timestamp and split
// into maximal runs where consecutive members lie within the threshold; a
// larger gap starts a new group. Every frame belongs to exactly one group.
func ByTime(times []time.Time, threshold time.Duration) []Group {
	if len(times) == 0 {
		return nil
	}
	if threshold <= 0 {
		g := Group{
			Indices: make([]int, len(times)),
			Times:   make([]time.Time, len(times)),
		}
		for i, ts := range times {
			g.Indices[i] = i
			g.Times[i] = ts
		}
		return []Group{g}
	}

	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]].Before(times[order[b]])
	})

	var groups []Group
	current := Group{
		Indices: []int{order[0]},
		Times:   []time.Time{times[order[0]]},
	}
	for _, idx := range order[1:] {
		prev := current.Times[len(current.Times)-1]
		if times[idx].Sub(prev) <= threshold {
			current.Indices = append(current.Indices, idx)
			current.Times = append(current.Times, times[idx])
			continue
		}
		groups = append(groups, current)
		current = Group{
			Indices: []int{idx},
			Times:   []time.Time{times[idx]},
		}
	}
	return append(groups, current)
}
