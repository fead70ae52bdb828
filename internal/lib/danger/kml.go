package danger

import (
	"fmt"
	"image/color"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/dpup/fireproof/server/internal/lib/geo"
)

var zoneColors = []struct {
	level AlertLevel
	color color.RGBA
}{
	{AlertLow, color.RGBA{R: 255, G: 255, A: 127}},
	{AlertMedium, color.RGBA{R: 255, G: 153, A: 127}},
	{AlertHigh, color.RGBA{R: 255, G: 51, A: 127}},
	{AlertCritical, color.RGBA{R: 255, A: 127}},
}

// WriteKML renders zones as polygons and fires as points into a single KML document.
func WriteKML(w io.Writer, name string, zones []Zone, fires []Observation) error {
	children := []kml.Element{kml.Name(name)}
	for _, zc := range zoneColors {
		children = append(children, kml.SharedStyle(
			styleID(zc.level),
			kml.LineStyle(kml.Color(zc.color), kml.Width(2)),
			kml.PolyStyle(kml.Color(zc.color)),
		))
	}

	for _, z := range zones {
		ring := z.Polygon(geo.DefaultPolygonPoints)
		coords := make([]kml.Coordinate, len(ring))
		for i, p := range ring {
			coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
		}
		children = append(children, kml.Placemark(
			kml.Name(z.FireID),
			kml.Description(fmt.Sprintf("%s risk, radius %.1fkm", z.RiskLevel, z.RadiusKm)),
			kml.StyleURL("#"+styleID(z.RiskLevel)),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(kml.Coordinates(coords...)),
				),
			),
		))
	}

	for _, f := range fires {
		desc := fmt.Sprintf("acquired %s %s by %s", f.AcqDate, f.AcqTime, f.Satellite)
		if f.FRP != nil {
			desc += fmt.Sprintf(", FRP %.1f MW", *f.FRP)
		}
		children = append(children, kml.Placemark(
			kml.Name(Key(f)),
			kml.Description(desc),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: f.Location.Longitude, Lat: f.Location.Latitude})),
		))
	}

	return kml.KML(kml.Document(children...)).WriteIndent(w, "", "  ")
}

func styleID(level AlertLevel) string {
	return "zone-" + level.String()
}
