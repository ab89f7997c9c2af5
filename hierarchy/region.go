package hierarchy

import (
	"github.com/notargets/DGMesh/errs"
	"go.uber.org/zap"
)

// Region is a named tag attachable to elements of any dimension
type Region struct {
	id   int
	name string
}

// ID returns the region id
func (r *Region) ID() int { return r.id }

// Name returns the region name
func (r *Region) Name() string { return r.name }

// SetName renames the region
func (r *Region) SetName(name string) { r.name = name }

// MakeRegion registers a region with the next unused id
func (h *Hierarchy) MakeRegion() *Region {
	for {
		if _, taken := h.regions[h.nextRegionID]; !taken {
			break
		}
		h.nextRegionID++
	}
	return h.registerRegion(h.nextRegionID)
}

// GetMakeRegion returns the region with id, registering it when missing
func (h *Hierarchy) GetMakeRegion(id int) (*Region, error) {
	if id < 0 {
		return nil, errs.Wrap(errs.ErrInvalidRegionID, "region %d", id)
	}
	if r, ok := h.regions[id]; ok {
		return r, nil
	}
	return h.registerRegion(id), nil
}

func (h *Hierarchy) registerRegion(id int) *Region {
	r := &Region{id: id}
	h.regions[id] = r
	h.regionOrder = append(h.regionOrder, id)
	if id >= h.nextRegionID {
		h.nextRegionID = id + 1
	}
	h.logger.Debug("region registered", zap.Int("region", id))
	return r
}

// Region returns the registered region with id
func (h *Hierarchy) Region(id int) (*Region, error) {
	r, ok := h.regions[id]
	if !ok {
		return nil, errs.Wrap(errs.ErrInvalidRegionID, "region %d", id)
	}
	return r, nil
}

// RegionByName returns the first registered region named name
func (h *Hierarchy) RegionByName(name string) (*Region, bool) {
	for _, id := range h.regionOrder {
		if r := h.regions[id]; r.name == name {
			return r, true
		}
	}
	return nil, false
}

// Regions returns every region in registration order
func (h *Hierarchy) Regions() []*Region {
	out := make([]*Region, len(h.regionOrder))
	for i, id := range h.regionOrder {
		out[i] = h.regions[id]
	}
	return out
}

// RegionCount returns the number of registered regions
func (h *Hierarchy) RegionCount() int { return len(h.regions) }
