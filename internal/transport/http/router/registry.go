package router

import (
	"sort"

	"gorm.io/gorm"

	"shop-api/internal/transport/http/ez"
)

// Groups are the three gates a module can mount actions behind.
type Groups struct {
	DB     *gorm.DB
	Public ez.EZ
	User   ez.EZ
	Admin  ez.EZ
}

type Module interface{ Mount(g Groups) }

// Optional; modules without it mount at priority 100.
type prioritizer interface{ Priority() int }

// MountAll mounts mods in ascending priority, keeping the given order for
// equal priorities.
func MountAll(g Groups, mods ...Module) {
	sorted := append([]Module(nil), mods...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priorityOf(sorted[i]) < priorityOf(sorted[j])
	})
	for _, m := range sorted {
		m.Mount(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
