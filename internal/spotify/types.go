package spotify

// Playlist is a playlist created for a setlist.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// URL returns the playlist's open.spotify.com link, if known.
func (p *Playlist) URL() string {
	return p.ExternalURLs["spotify"]
}

// MatchResult splits a setlist's songs into tracks found on Spotify and
// song names that had no search result.
type MatchResult struct {
	Matched   []string `json:"track_uris"`
	Unmatched []string `json:"failed_tracks"`
}
