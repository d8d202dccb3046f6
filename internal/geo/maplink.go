package geo

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mrsinham/medbrain/internal/session"
)

// DefaultZoom is the zoom level used for record maps.
const DefaultZoom = 13

// Tile identifies an OpenStreetMap slippy-map tile.
type Tile struct {
	X, Y, Z int
}

// TileAt returns the tile containing c at zoom z.
func TileAt(c session.Coordinates, z int) Tile {
	n := math.Exp2(float64(z))
	latRad := c.Lat * math.Pi / 180

	x := int(math.Floor((c.Lng + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n))

	// Clamp to the tile grid
	maxIdx := int(n) - 1
	x = min(max(x, 0), maxIdx)
	y = min(max(y, 0), maxIdx)
	return Tile{X: x, Y: y, Z: z}
}

// URL returns the tile image URL.
func (t Tile) URL() string {
	return fmt.Sprintf("https://tile.openstreetmap.org/%d/%d/%d.png", t.Z, t.X, t.Y)
}

// MapURL returns an OpenStreetMap page centred on c.
func MapURL(c session.Coordinates) string {
	lat, lng := format(c.Lat), format(c.Lng)
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=%d/%s/%s", lat, lng, DefaultZoom, lat, lng)
}

// GoogleMapsURL returns a Google Maps link for c.
func GoogleMapsURL(c session.Coordinates) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s", format(c.Lat), format(c.Lng))
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
