package rooms

import (
	"net/http"
	"sort"

	"github.com/go-chi/render"
	"github.com/jackwatters45/gate-cs-ws/core"
)

type (
	// Lister is satisfied by *rooms.Registry.
	Lister interface {
		Rooms() []core.RoomInfo
	}

	Summary struct {
		ID          string `json:"id"`
		Users       int    `json:"users"`
		LastUpdated *int64 `json:"lastUpdated,omitempty"`
	}
)

// HandleList lists live rooms, busiest and most recently written first.
func HandleList(registry Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, summarize(registry.Rooms()))
	}
}

func summarize(infos []core.RoomInfo) []Summary {
	list := make([]Summary, 0, len(infos))
	for _, info := range infos {
		entry := Summary{ID: info.ID, Users: info.Members}
		if info.LastUpdated > 0 {
			lastUpdated := info.LastUpdated
			entry.LastUpdated = &lastUpdated
		}
		list = append(list, entry)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Users != list[j].Users {
			return list[i].Users > list[j].Users
		}
		li, lj := deref(list[i].LastUpdated), deref(list[j].LastUpdated)
		if li != lj {
			return li > lj
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
