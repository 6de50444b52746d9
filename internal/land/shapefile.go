package land

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// LoadShapefile reads every polygonal record of a lon/lat shapefile, such
// as the Natural Earth land layer, into a Mask.
func LoadShapefile(path string) (*Mask, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open land shapefile %s: %w", path, err)
	}
	defer dec.Close()

	var polys []geom.Polygon
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if pg, ok := g.(geom.Polygonal); ok {
			polys = append(polys, pg.Polygons()...)
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decode land shapefile %s: %w", path, err)
	}
	return FromGeom(polys)
}
