package allocator

import "github.com/ds124wfegd/tablebooker/internal/entity"

// FilterCatalog keeps the table types matching the location, floor and roof preferences.
func FilterCatalog(types []*entity.TableType, filter entity.TableFilter) []*entity.TableType {
	matched := make([]*entity.TableType, 0, len(types))
	for _, t := range types {
		if filter.Match(t) {
			matched = append(matched, t)
		}
	}
	return matched
}
