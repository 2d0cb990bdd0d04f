// Package crs resolves EPSG identifiers to projection parameters and
// reprojects canonical geometries between coordinate reference systems.
//
// Supported systems: EPSG:4326 (geographic WGS84), EPSG:3857 (spherical web
// mercator), EPSG:2263 (NAD83 / New York Long Island, US survey feet), NAD83
// UTM zones (26901-26923), and WGS84 UTM zones (32601-32660 north,
// 32701-32760 south). NAD83 and WGS84 are treated as equivalent datums; the
// shift between them is sub-meter.
package crs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrUnknownCRS  = eris.New("crs: unknown CRS identifier")
	ErrOutOfDomain = eris.New("crs: coordinate outside target CRS domain")
)

// Reference ellipsoids. GRS80 and WGS84 differ only in the eighth decimal of
// the flattening.
const (
	grs80A  = 6378137.0
	grs80F  = 1.0 / 298.257222101
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	sphereR = 6378137.0

	// US survey foot in meters (1200/3937 exactly).
	usFoot = 1200.0 / 3937.0
)

// CRS identifies a coordinate reference system and carries its projection.
// A nil projection means the CRS is geographic (coordinates are lon/lat
// degrees).
type CRS struct {
	Code        int
	Name        string
	proj        projection
	unitToMeter float64
}

// IsGeographic reports whether coordinates in this CRS are lon/lat degrees.
func (c CRS) IsGeographic() bool { return c.proj == nil }

func (c CRS) String() string { return fmt.Sprintf("EPSG:%d", c.Code) }

// Parse resolves a CRS identifier like "EPSG:4326", a bare numeric code, or
// the "WGS84"/"CRS84" aliases.
func Parse(s string) (CRS, error) {
	id := strings.ToUpper(strings.TrimSpace(s))
	switch id {
	case "WGS84", "WGS:84", "CRS84", "OGC:CRS84":
		return lookup(4326)
	}

	id = strings.TrimPrefix(id, "EPSG:")
	code, err := strconv.Atoi(id)
	if err != nil {
		return CRS{}, eris.Wrapf(ErrUnknownCRS, "%q", s)
	}
	return lookup(code)
}

func lookup(code int) (CRS, error) {
	switch {
	case code == 4326:
		return CRS{Code: 4326, Name: "WGS 84", unitToMeter: 1}, nil

	case code == 3857:
		return CRS{
			Code:        3857,
			Name:        "WGS 84 / Pseudo-Mercator",
			proj:        webMercator{},
			unitToMeter: 1,
		}, nil

	case code == 2263:
		return CRS{
			Code:        2263,
			Name:        "NAD83 / New York Long Island (ftUS)",
			proj:        newLCC2SP(grs80A, grs80F, 40.0+10.0/60.0, 41.0+2.0/60.0, 40.0+40.0/60.0, -74.0, 984250.0*usFoot, 0),
			unitToMeter: usFoot,
		}, nil

	case code > 26900 && code <= 26923:
		zone := code - 26900
		return CRS{
			Code:        code,
			Name:        fmt.Sprintf("NAD83 / UTM zone %dN", zone),
			proj:        newTransverseMercator(grs80A, grs80F, utmCentralMeridian(zone), 0.9996, 500000, 0),
			unitToMeter: 1,
		}, nil

	case code > 32600 && code <= 32660:
		zone := code - 32600
		return CRS{
			Code:        code,
			Name:        fmt.Sprintf("WGS 84 / UTM zone %dN", zone),
			proj:        newTransverseMercator(wgs84A, wgs84F, utmCentralMeridian(zone), 0.9996, 500000, 0),
			unitToMeter: 1,
		}, nil

	case code > 32700 && code <= 32760:
		zone := code - 32700
		return CRS{
			Code:        code,
			Name:        fmt.Sprintf("WGS 84 / UTM zone %dS", zone),
			proj:        newTransverseMercator(wgs84A, wgs84F, utmCentralMeridian(zone), 0.9996, 500000, 10000000),
			unitToMeter: 1,
		}, nil

	default:
		return CRS{}, eris.Wrapf(ErrUnknownCRS, "EPSG:%d", code)
	}
}

func utmCentralMeridian(zone int) float64 {
	return float64(-183 + 6*zone)
}
