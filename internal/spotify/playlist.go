package spotify

import (
	"context"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-setlist-to-playlist/internal/auth"
)

const trackURIPrefix = "spotify:track:"

// CreatePlaylist creates a private, non-collaborative playlist for userID.
func (c *Client) CreatePlaylist(ctx context.Context, cred *auth.Credential, userID, name, description string) (*Playlist, error) {
	k := c.newCall(cred.Token())

	created, err := k.api.CreatePlaylistForUser(ctx, userID, name, description, false, false)
	if err != nil {
		return nil, k.classify("creating playlist", err)
	}

	c.logger.Info("created playlist", "id", created.ID, "name", created.Name)

	return &Playlist{
		ID:           created.ID.String(),
		Name:         created.Name,
		Description:  created.Description,
		ExternalURLs: created.ExternalURLs,
	}, nil
}

// AppendTracks adds all uris to the playlist in a single request.
// The request is sent even when uris is empty.
func (c *Client) AppendTracks(ctx context.Context, cred *auth.Credential, playlistID string, uris []string) error {
	// The library takes bare IDs and builds the track URIs itself.
	ids := make([]spotify.ID, len(uris))
	for i, uri := range uris {
		ids[i] = spotify.ID(strings.TrimPrefix(uri, trackURIPrefix))
	}

	k := c.newCall(cred.Token())
	if _, err := k.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return k.classify("adding tracks", err)
	}

	c.logger.Info("added tracks", "playlist", playlistID, "count", len(uris))
	return nil
}
