package game

import (
	"maps"
	"slices"
)

// Registry holds the live rooms by id. Only the Dispatcher mutates it.
type Registry struct {
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Add registers room under its id. An existing room with the same id is
// replaced.
func (r *Registry) Add(room *Room) {
	r.rooms[room.ID()] = room
}

func (r *Registry) Get(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// Remove deletes the entry only if it still points at room.
func (r *Registry) Remove(room *Room) bool {
	if current, ok := r.rooms[room.ID()]; !ok || current != room {
		return false
	}
	delete(r.rooms, room.ID())
	return true
}

// IDs is never nil so an empty registry encodes as [].
func (r *Registry) IDs() []string {
	ids := slices.AppendSeq(make([]string, 0, len(r.rooms)), maps.Keys(r.rooms))
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.rooms)
}
