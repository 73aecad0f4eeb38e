package engine

import (
	"sort"

	"github.com/Guizzs26/suya-queue/internal/models"
)

// ActiveQueue returns the entries still waiting: numbers strictly above the serving suffix, ascending.
// It is recomputed from scratch on every cycle; the feed is the only source of truth.
func ActiveQueue(entries []models.QueueEntry, servingSuffix int) []models.QueueEntry {
	active := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Suffix() > servingSuffix {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Suffix() < active[j].Suffix()
	})
	return active
}
