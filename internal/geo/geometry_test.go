package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestParseGeoJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "object", raw: `{"type":"LineString","coordinates":[[-77.078,3.889],[-77.06,3.882]]}`},
		{name: "string wrapped", raw: `"{\"type\":\"LineString\",\"coordinates\":[[-77.078,3.889],[-77.06,3.882]]}"`},
		{name: "empty", raw: ``, wantErr: true},
		{name: "empty string", raw: `""`, wantErr: true},
		{name: "not json", raw: `{"type":`, wantErr: true},
		{name: "unknown type", raw: `{"type":"Circle","coordinates":[1,2]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseGeoJSON([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ls, ok := g.(*geom.LineString)
			require.True(t, ok)
			assert.Equal(t, 2, ls.NumCoords())
		})
	}
}

func TestValidateLinear(t *testing.T) {
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {1, 1}})
	short := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}})
	multi := geom.NewMultiLineString(geom.XY)
	require.NoError(t, multi.Push(line))

	assert.NoError(t, ValidateLinear(line))
	assert.NoError(t, ValidateLinear(multi))
	assert.ErrorIs(t, ValidateLinear(short), ErrEmptyGeometry)
	assert.ErrorIs(t, ValidateLinear(geom.NewMultiLineString(geom.XY)), ErrEmptyGeometry)
	assert.ErrorIs(t, ValidateLinear(NewPoint(1, 2)), ErrNotLinear)
}

func TestGeometryValueScanRoundTrip(t *testing.T) {
	src, err := ParseGeoJSON([]byte(`{"type":"MultiLineString","coordinates":[[[-76.5205,3.42158],[-76.52,3.4216]],[[-76.51,3.43],[-76.50,3.44]]]}`))
	require.NoError(t, err)

	v, err := Geometry{T: src}.Value()
	require.NoError(t, err)
	hex, ok := v.(string)
	require.True(t, ok)

	var fromText Geometry
	require.NoError(t, fromText.Scan(hex))
	var fromBytes Geometry
	require.NoError(t, fromBytes.Scan([]byte(hex)))

	for _, got := range []Geometry{fromText, fromBytes} {
		mls, ok := got.T.(*geom.MultiLineString)
		require.True(t, ok)
		assert.Equal(t, SRID, mls.SRID())
		assert.Equal(t, src.FlatCoords(), mls.FlatCoords())
		assert.Equal(t, src.Ends(), mls.Ends())
	}
}

func TestGeometryNullHandling(t *testing.T) {
	var g Geometry
	v, err := g.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, g.Scan(nil))
	assert.False(t, g.Valid())

	b, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(b))
}

func TestGeometryJSONIsGeoJSON(t *testing.T) {
	g := Geometry{T: NewPoint(-76.5205, 3.42158)}

	b, err := json.Marshal(g)
	require.NoError(t, err)

	var doc struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "Point", doc.Type)
	assert.Equal(t, []float64{-76.5205, 3.42158}, doc.Coordinates)

	var back Geometry
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, g.T.FlatCoords(), back.T.FlatCoords())
}

func TestCollectLines(t *testing.T) {
	a := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{0, 0}, {1, 0}})
	b := geom.NewMultiLineString(geom.XY)
	require.NoError(t, b.Push(geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{1, 0}, {2, 0}})))
	require.NoError(t, b.Push(geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{2, 0}, {3, 1}})))

	out, err := CollectLines([]geom.T{a, NewPoint(9, 9), b})
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumLineStrings())
	assert.Equal(t, SRID, out.SRID())

	_, err = CollectLines([]geom.T{NewPoint(1, 1)})
	assert.ErrorIs(t, err, ErrEmptyGeometry)

	_, err = CollectLines(nil)
	assert.ErrorIs(t, err, ErrEmptyGeometry)
}
