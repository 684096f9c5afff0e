package service

import (
	"sort"
	"strings"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

// FindDuplicates groups parcels by (normalized description, total weight,
// client) and returns every group of two or more. Advisory only: a
// duplicate hint never blocks any operation.
func FindDuplicates(parcels []*domain.Parcel) []ports.DuplicateGroup {
	type key struct {
		description string
		weightKg    float64
		clientID    string
	}

	groups := make(map[key][]*domain.Parcel)
	for _, p := range parcels {
		k := key{
			description: strings.ToLower(strings.TrimSpace(p.Description)),
			weightKg:    p.WeightKg,
			clientID:    p.ClientID,
		}
		groups[k] = append(groups[k], p)
	}

	var out []ports.DuplicateGroup
	for k, members := range groups {
		if len(members) < 2 {
			continue
		}
		ids := make([]string, 0, len(members))
		for _, p := range members {
			ids = append(ids, p.ID)
		}
		sort.Strings(ids)
		out = append(out, ports.DuplicateGroup{
			Description: k.description,
			WeightKg:    k.weightKg,
			ClientID:    k.clientID,
			ParcelIDs:   ids,
		})
	}

	// Stable output for callers and tests.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.WeightKg < b.WeightKg
	})
	return out
}
