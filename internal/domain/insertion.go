package domain

import "strings"

// cityDelimiter separates city and state code in the execution report,
// e.g. "Manaus / AM".
const cityDelimiter = " / "

// represents one broadcast insertion reported by the execution API
type Insertion struct {
	StationName string `json:"stationName"`
	Client      string `json:"client"`
	Hour        string `json:"hour"`
	City        string `json:"city"`
	Region      string `json:"uf"`
	Date        string `json:"date"`
}

// raw line of the execution report, city still combined with the state code
type ExecutionLine struct {
	StationName string `json:"stationName"`
	Client      string `json:"client"`
	Hour        string `json:"hour"`
	City        string `json:"city"`
	Date        string `json:"date"`
}

// raw shape of the execution report response
type ExecutionPage struct {
	Data struct {
		Lines []ExecutionLine `json:"lines"`
	} `json:"data"`
}

// SplitCity splits a combined "City / UF" string. A missing delimiter yields
// the whole string as city and an empty region.
func SplitCity(combined string) (city, region string) {
	parts := strings.SplitN(combined, cityDelimiter, 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return combined, ""
}

// Insertion converts the raw line into a normalized Insertion record.
func (l ExecutionLine) Insertion() Insertion {
	city, region := SplitCity(l.City)
	return Insertion{
		StationName: l.StationName,
		Client:      l.Client,
		Hour:        l.Hour,
		City:        city,
		Region:      region,
		Date:        l.Date,
	}
}
