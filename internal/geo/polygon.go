package geo

// MinPolygonVertices is the smallest vertex count that encloses any area.
// Polygons with fewer vertices never contain a point.
const MinPolygonVertices = 3

// PointInPolygon reports whether p lies inside polygon using even-odd ray
// casting. For each edge whose longitude span brackets the point, the
// latitude of the edge at the point's longitude is computed and containment
// parity flips when the point's latitude is below it.
//
// The function is pure and deterministic for identical inputs. Degenerate or
// self-intersecting polygons are not validated; containment is whatever
// even-odd parity produces. Points exactly on a vertex or edge resolve to one
// side consistently across calls but no particular side is promised.
func PointInPolygon(p Point, polygon Polygon) bool {
	if len(polygon) < MinPolygonVertices {
		return false
	}

	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		vi, vj := polygon[i], polygon[j]

		// Edge must bracket the point's longitude for the ray to cross it.
		if (vi.Lng > p.Lng) == (vj.Lng > p.Lng) {
			continue
		}

		intersectLat := (vj.Lat-vi.Lat)*(p.Lng-vi.Lng)/(vj.Lng-vi.Lng) + vi.Lat
		if p.Lat < intersectLat {
			inside = !inside
		}
	}
	return inside
}
