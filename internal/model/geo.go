package model

// bboxDelta is the half-width in degrees of the bounding box drawn around a
// city center, roughly 50 km at mid latitudes.
const bboxDelta = 0.45

// BoundingBox is a rectangular geographic constraint in WGS84 degrees.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// CityCenter is the reference coordinate for a city. It anchors the bounding
// box and proximity bias for every venue geocode in the same conversation.
type CityCenter struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	City      string      `json:"city"`
	Country   string      `json:"country"`
	PlaceName string      `json:"place_name"`
	Box       BoundingBox `json:"box"`
}

// NewCityCenter builds a city center with its bounding box derived from the
// fixed radius around the point.
func NewCityCenter(lat, lon float64, city, country, placeName string) *CityCenter {
	return &CityCenter{
		Latitude:  lat,
		Longitude: lon,
		City:      city,
		Country:   country,
		PlaceName: placeName,
		Box: BoundingBox{
			MinLon: lon - bboxDelta,
			MinLat: lat - bboxDelta,
			MaxLon: lon + bboxDelta,
			MaxLat: lat + bboxDelta,
		},
	}
}

// GeocodeResult is one geocoded venue.
type GeocodeResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"place_name"`
	Relevance float64 `json:"relevance"`
}
