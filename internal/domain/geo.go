package domain

// best-guess coordinates for a city
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// one resolved city on the dashboard map
type CoordinateEntry struct {
	City string  `json:"cidade"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// raw shape of the geonames search response; lat/lng arrive as strings
type GeonamesPage struct {
	Geonames []struct {
		Lat string `json:"lat"`
		Lng string `json:"lng"`
	} `json:"geonames"`
}
