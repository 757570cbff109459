package walk

import (
	"fmt"
	"strconv"
)

// PlaceKind tags which variant of Place is populated.
type PlaceKind string

const (
	// PlaceNone marks a place that was never provided.
	PlaceNone PlaceKind = ""
	// PlaceText is a free-form address or link.
	PlaceText PlaceKind = "text"
	// PlaceGeo is a shared Telegram location.
	PlaceGeo PlaceKind = "geo"
)

// Place is either a free-text address or a geo point.
type Place struct {
	Kind PlaceKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	Lat  float64   `json:"lat,omitempty"`
	Lon  float64   `json:"lon,omitempty"`
}

// TextPlace builds a text variant.
func TextPlace(text string) Place {
	return Place{Kind: PlaceText, Text: text}
}

// GeoPlace builds a coordinate variant.
func GeoPlace(lat, lon float64) Place {
	return Place{Kind: PlaceGeo, Lat: lat, Lon: lon}
}

// IsZero reports whether the place is unset.
func (p Place) IsZero() bool {
	return p.Kind == PlaceNone
}

// Coordinates renders the geo variant as "lat,lon".
func (p Place) Coordinates() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// MapsURL returns a Google Maps link for geo places and an empty string otherwise.
func (p Place) MapsURL() string {
	if p.Kind != PlaceGeo {
		return ""
	}
	return "https://maps.google.com/?q=" + p.Coordinates()
}

// String is used in logs only.
func (p Place) String() string {
	switch p.Kind {
	case PlaceText:
		return p.Text
	case PlaceGeo:
		return p.Coordinates()
	default:
		return ""
	}
}

// Validate reports a malformed variant.
func (p Place) Validate() error {
	switch p.Kind {
	case PlaceNone, PlaceText:
		return nil
	case PlaceGeo:
		if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("place: coordinates out of range: %s", p.Coordinates())
		}
		return nil
	default:
		return fmt.Errorf("place: unknown kind %q", p.Kind)
	}
}
