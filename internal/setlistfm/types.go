package setlistfm

import "time"

// EventDateLayout is the setlist.fm eventDate format (day-month-year).
const EventDateLayout = "2-1-2006"

// Setlist is a concert setlist as returned by GET /setlist/{id}.
type Setlist struct {
	ID        string  `json:"id"`
	VersionID string  `json:"versionId,omitempty"`
	EventDate string  `json:"eventDate,omitempty"`
	Artist    *Artist `json:"artist,omitempty"`
	Venue     *Venue  `json:"venue,omitempty"`
	Tour      *Tour   `json:"tour,omitempty"`
	Sets      Sets    `json:"sets"`
	URL       string  `json:"url,omitempty"`
}

// Artist identifies a performer. MBID is the MusicBrainz identifier.
type Artist struct {
	MBID           string `json:"mbid,omitempty"`
	Name           string `json:"name"`
	SortName       string `json:"sortName,omitempty"`
	Disambiguation string `json:"disambiguation,omitempty"`
	URL            string `json:"url,omitempty"`
}

// Venue is where the concert took place.
type Venue struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	City *City  `json:"city,omitempty"`
	URL  string `json:"url,omitempty"`
}

// City of a venue.
type City struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	State     string   `json:"state,omitempty"`
	StateCode string   `json:"stateCode,omitempty"`
	Coords    *Coords  `json:"coords,omitempty"`
	Country   *Country `json:"country,omitempty"`
}

// Coords are the geographic coordinates of a city.
type Coords struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Country of a city.
type Country struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}

// Tour the concert belongs to.
type Tour struct {
	Name string `json:"name"`
}

// Sets wraps the ordered performance sets.
type Sets struct {
	Set []Set `json:"set"`
}

// Set is one block of a concert, such as the main set or an encore.
type Set struct {
	Name   string `json:"name,omitempty"`
	Encore int    `json:"encore,omitempty"`
	Song   []Song `json:"song"`
}

// Song is a single performed song.
type Song struct {
	Name  string  `json:"name"`
	Info  string  `json:"info,omitempty"`
	Tape  bool    `json:"tape,omitempty"`
	Cover *Artist `json:"cover,omitempty"`
}

// Songs returns the song names across all sets in performance order.
// Every entry is kept, including ones without a name.
func (s *Setlist) Songs() []string {
	var songs []string
	for _, set := range s.Sets.Set {
		for _, song := range set.Song {
			songs = append(songs, song.Name)
		}
	}
	return songs
}

// ArtistName returns the artist name or "" when absent.
func (s *Setlist) ArtistName() string {
	if s.Artist == nil {
		return ""
	}
	return s.Artist.Name
}

// VenueName returns the venue name or "" when absent.
func (s *Setlist) VenueName() string {
	if s.Venue == nil {
		return ""
	}
	return s.Venue.Name
}

// CityName returns the venue's city name or "" when absent.
func (s *Setlist) CityName() string {
	if s.Venue == nil || s.Venue.City == nil {
		return ""
	}
	return s.Venue.City.Name
}

// Date parses EventDate.
func (s *Setlist) Date() (time.Time, error) {
	return time.Parse(EventDateLayout, s.EventDate)
}
