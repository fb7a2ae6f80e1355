package domain

import "time"

// represents one advertising campaign as reported by the campaigns API
type Campaign struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Client    string `json:"client"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// raw shape of the campaigns API response
type CampaignPage struct {
	Data struct {
		Lines []Campaign `json:"lines"`
	} `json:"data"`
}

// date formats the upstream has been observed to emit
var campaignDateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// ParseCampaignDate parses an upstream campaign date string.
func ParseCampaignDate(value string) (time.Time, error) {
	var t time.Time
	var err error
	for _, format := range campaignDateFormats {
		t, err = time.Parse(format, value)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ActiveOn reports whether the campaign interval [startDate, endDate] covers
// the given calendar day. Both bounds are closed and compared at date
// granularity. Campaigns with unparseable dates are reported inactive.
func (c Campaign) ActiveOn(day time.Time) bool {
	return c.OverlapsRange(day, day)
}

// OverlapsRange reports whether [startDate, endDate] overlaps the closed
// interval [from, to]: endDate >= from AND startDate <= to.
func (c Campaign) OverlapsRange(from, to time.Time) bool {
	start, err := ParseCampaignDate(c.StartDate)
	if err != nil {
		return false
	}
	end, err := ParseCampaignDate(c.EndDate)
	if err != nil {
		return false
	}
	return !truncateDay(end).Before(truncateDay(from)) && !truncateDay(start).After(truncateDay(to))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}
