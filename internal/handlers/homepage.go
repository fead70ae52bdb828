package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// homepage serves a simple HTML index of the API at the server root
func (h *Handler) homepage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homepageHTML))
}

const homepageHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>fireproof</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #f80;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">fireproof</span>

Wildfire-aware navigation: active fires, danger zones, safe places and
routes that steer around fire.

<span class="header">API Endpoints:</span>

  GET /api/fires/check?latitude=&amp;longitude=&amp;alert_threshold_km=
        - Fire alert level for a location
  GET /api/fires/region?region=USA_CANADA&amp;limit=
        - Active fires across a region (USA, CANADA, USA_CANADA)
  GET /api/navigate?latitude=&amp;longitude=&amp;fire_radius_km=&amp;safe_place_radius_km=&amp;include_route=
        - Danger zones, safe places and a recommended evacuation route
  GET /api/route?origin_lat=&amp;origin_lng=&amp;dest_lat=&amp;dest_lng=&amp;avoid_fires=&amp;profile=
        - Route between two points, avoiding fire zones
  GET /api/zones.kml?latitude=&amp;longitude=&amp;radius_km=
        - Danger zones as KML

  <a href="/health">GET /health</a>
  <a href="/metrics">GET /metrics</a>

<span class="header">Data Sources:</span>
  • NASA FIRMS           - Satellite fire detections
  • OpenRouteService     - Directions with avoid polygons
  • OpenStreetMap        - Hospitals, shelters and fire stations via Overpass
  • OpenCellID           - Cell tower locations
</pre>
</body>
</html>`
