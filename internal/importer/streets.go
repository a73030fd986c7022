// Package importer reads street geometries from GeoJSON FeatureCollections.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	gjson "github.com/twpayne/go-geom/encoding/geojson"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/geo"
	"route_tracker/internal/models"
)

// Result holds the streets kept from a collection and how many features were dropped.
type Result struct {
	Streets []models.Street
	Skipped int
}

// ParseStreets keeps every feature that has a non-empty "name" property and a
// LineString or MultiLineString geometry.
func ParseStreets(r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read geojson: %w", err)
	}

	var fc gjson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return Result{}, fmt.Errorf("decode feature collection: %w", err)
	}

	var res Result
	for i, f := range fc.Features {
		name := featureName(f)
		if name == "" {
			res.Skipped++
			continue
		}
		if f.Geometry == nil {
			res.Skipped++
			continue
		}
		if err := geo.ValidateLinear(f.Geometry); err != nil {
			logrus.WithFields(logrus.Fields{"feature": i, "name": name}).WithError(err).Debug("skipping feature")
			res.Skipped++
			continue
		}
		res.Streets = append(res.Streets, models.Street{
			Name:  name,
			Shape: geo.Geometry{T: f.Geometry},
		})
	}
	return res, nil
}

func featureName(f *gjson.Feature) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	name, _ := f.Properties["name"].(string)
	return strings.TrimSpace(name)
}
