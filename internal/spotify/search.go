package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/auth"
	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
)

// SearchQuery builds the track search query for a song by artist.
func SearchQuery(song, artist string) string {
	return fmt.Sprintf("track:%s artist:%s", song, artist)
}

// MatchTracks searches for every song of the setlist in performance order,
// one request per song, and takes the first result as the match.
// A failed search aborts the whole match; an empty result is a miss.
// Songs without a name are misses and are not searched.
func (c *Client) MatchTracks(ctx context.Context, cred *auth.Credential, setlist *setlistfm.Setlist) (*MatchResult, error) {
	k := c.newCall(cred.Token())
	artist := setlist.ArtistName()
	result := &MatchResult{
		Matched:   []string{},
		Unmatched: []string{},
	}

	for _, song := range setlist.Songs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if strings.TrimSpace(song) == "" {
			result.Unmatched = append(result.Unmatched, song)
			continue
		}

		found, err := k.api.Search(ctx, SearchQuery(song, artist), spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return nil, k.classify(fmt.Sprintf("searching for %q", song), err)
		}
		if found.Tracks == nil {
			return nil, fmt.Errorf("searching for %q: %w: no tracks in result", song, apperrors.ErrMalformedResponse)
		}

		if len(found.Tracks.Tracks) == 0 {
			c.logger.Debug("no match", "song", song, "artist", artist)
			result.Unmatched = append(result.Unmatched, song)
			continue
		}
		result.Matched = append(result.Matched, string(found.Tracks.Tracks[0].URI))
	}

	c.logger.Info("matched tracks", "artist", artist, "matched", len(result.Matched), "unmatched", len(result.Unmatched))
	return result, nil
}
