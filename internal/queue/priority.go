// Package queue implements the priority-weighted work queue (C5): the
// enqueue/claim/complete/reclaim contract and the crawl priority formula
// that drives recursion order.
package queue

import "math"

// PriorityFloor is the minimum computed priority a crawl enqueue must
// clear; below it, the recursion predicate rejects the job outright.
const PriorityFloor = 10

// CrawlPriority scores a candidate crawl job by how close it is to the
// seed (hop) and how influential it is (citationCount), weighting both
// components equally. maxHops must be >= 1.
func CrawlPriority(hop, maxHops, citationCount int) int {
	if maxHops <= 0 {
		maxHops = 1
	}
	hopFactor := 1 - float64(hop)/float64(maxHops)
	if hopFactor < 0 {
		hopFactor = 0
	}
	citationScore := float64(citationCount) / 100
	if citationScore > 1 {
		citationScore = 1
	}
	score := 100 * hopFactor * (0.5 + 0.5*citationScore)
	return int(math.Round(score))
}

// ShouldRecurse reports whether a crawl candidate at the given priority
// clears the floor and is therefore worth enqueueing.
func ShouldRecurse(priority int) bool {
	return priority >= PriorityFloor
}
