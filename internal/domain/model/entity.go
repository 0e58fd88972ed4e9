package model

import "sort"

// Entity is a controllable entity offered by a target provider.
type Entity struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
}

// SortEntities orders by entity id.
func SortEntities(entities []Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].EntityID < entities[j].EntityID
	})
}
