// Package geo converts between GeoJSON, go-geom values and the EWKB form PostGIS
// stores in geometry columns.
package geo

import (
	"bytes"
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
)

// SRID is WGS84 longitude/latitude.
const SRID = 4326

var (
	ErrEmptyGeometry = errors.New("geometry is empty")
	ErrNotLinear     = errors.New("geometry must be a LineString or MultiLineString")
)

// Geometry is a nullable geometry column. It is written to PostGIS as hex EWKB and
// rendered to clients as GeoJSON.
type Geometry struct {
	geom.T
}

// Valid reports whether a geometry is present.
func (g Geometry) Valid() bool { return g.T != nil }

// GormDataType tells gorm which column type to use when no type tag is given.
func (Geometry) GormDataType() string { return "geometry" }

// Value implements driver.Valuer.
func (g Geometry) Value() (driver.Value, error) {
	if g.T == nil {
		return nil, nil
	}
	t, err := withSRID(g.T, SRID)
	if err != nil {
		return nil, err
	}
	return ewkbhex.Encode(t, binary.LittleEndian)
}

// Scan implements sql.Scanner. PostGIS hands geometry columns back either as hex
// EWKB text or as raw EWKB bytes depending on the wire format.
func (g *Geometry) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		g.T = nil
		return nil
	case string:
		return g.scanHex(v)
	case []byte:
		if len(v) == 0 {
			g.T = nil
			return nil
		}
		// byte-order marker of binary EWKB
		if v[0] == 0x00 || v[0] == 0x01 {
			t, err := ewkb.Unmarshal(v)
			if err != nil {
				return fmt.Errorf("decode ewkb: %w", err)
			}
			g.T = t
			return nil
		}
		return g.scanHex(string(v))
	default:
		return fmt.Errorf("geo: cannot scan %T into Geometry", src)
	}
}

func (g *Geometry) scanHex(s string) error {
	if s == "" {
		g.T = nil
		return nil
	}
	t, err := ewkbhex.Decode(s)
	if err != nil {
		return fmt.Errorf("decode hex ewkb: %w", err)
	}
	g.T = t
	return nil
}

// MarshalJSON renders the geometry as a GeoJSON object, or null.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.T == nil {
		return []byte("null"), nil
	}
	return gjson.Marshal(g.T)
}

// UnmarshalJSON accepts a GeoJSON object or a string holding one.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		g.T = nil
		return nil
	}
	t, err := ParseGeoJSON(data)
	if err != nil {
		return err
	}
	g.T = t
	return nil
}

// ParseGeoJSON decodes a GeoJSON geometry. A JSON string whose content is GeoJSON is
// unwrapped first.
func ParseGeoJSON(raw []byte) (geom.T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyGeometry
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("invalid geojson string: %w", err)
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 {
			return nil, ErrEmptyGeometry
		}
	}
	var t geom.T
	if err := gjson.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("invalid geojson: %w", err)
	}
	if t == nil {
		return nil, ErrEmptyGeometry
	}
	return t, nil
}

// ToGeoJSON renders t as a GeoJSON geometry object.
func ToGeoJSON(t geom.T) (json.RawMessage, error) {
	if t == nil {
		return json.RawMessage("null"), nil
	}
	b, err := gjson.Marshal(t)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// ValidateLinear checks that t is a LineString or MultiLineString whose lines each
// have at least two positions.
func ValidateLinear(t geom.T) error {
	switch g := t.(type) {
	case *geom.LineString:
		if g.NumCoords() < 2 {
			return fmt.Errorf("%w: line needs at least two positions", ErrEmptyGeometry)
		}
	case *geom.MultiLineString:
		if g.NumLineStrings() == 0 {
			return ErrEmptyGeometry
		}
		for i := 0; i < g.NumLineStrings(); i++ {
			if g.LineString(i).NumCoords() < 2 {
				return fmt.Errorf("%w: line %d needs at least two positions", ErrEmptyGeometry, i)
			}
		}
	default:
		return ErrNotLinear
	}
	return nil
}

// NewPoint builds a WGS84 point. Axis order is longitude, latitude.
func NewPoint(lon, lat float64) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{lon, lat}).SetSRID(SRID)
}

// CollectLines gathers every line of the given LineStrings and MultiLineStrings into
// one MultiLineString. Other geometry types are skipped. Touching segments are not
// merged.
func CollectLines(geoms []geom.T) (*geom.MultiLineString, error) {
	out := geom.NewMultiLineString(geom.XY).SetSRID(SRID)
	for _, t := range geoms {
		switch g := t.(type) {
		case *geom.LineString:
			if err := pushLine(out, g); err != nil {
				return nil, err
			}
		case *geom.MultiLineString:
			for i := 0; i < g.NumLineStrings(); i++ {
				if err := pushLine(out, g.LineString(i)); err != nil {
					return nil, err
				}
			}
		}
	}
	if out.NumLineStrings() == 0 {
		return nil, ErrEmptyGeometry
	}
	return out, nil
}

func pushLine(dst *geom.MultiLineString, ls *geom.LineString) error {
	if ls.NumCoords() == 0 {
		return nil
	}
	coords := make([]geom.Coord, 0, ls.NumCoords())
	for _, c := range ls.Coords() {
		coords = append(coords, geom.Coord{c.X(), c.Y()})
	}
	line, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return err
	}
	return dst.Push(line)
}

func withSRID(t geom.T, srid int) (geom.T, error) {
	if t.SRID() == srid {
		return t, nil
	}
	switch g := t.(type) {
	case *geom.Point:
		return g.SetSRID(srid), nil
	case *geom.LineString:
		return g.SetSRID(srid), nil
	case *geom.MultiLineString:
		return g.SetSRID(srid), nil
	case *geom.Polygon:
		return g.SetSRID(srid), nil
	case *geom.MultiPoint:
		return g.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return g.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return g.SetSRID(srid), nil
	default:
		return nil, fmt.Errorf("geo: unsupported geometry %T", t)
	}
}
