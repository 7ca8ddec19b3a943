// Package playlist turns a setlist.fm URL into a populated Spotify playlist.
package playlist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/auth"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
	"github.com/justestif/go-setlist-to-playlist/internal/spotify"
)

// descriptionDateLayout renders the event date as dd-MM-yyyy.
const descriptionDateLayout = "02-01-2006"

// CredentialFetcher returns a usable credential for a session.
type CredentialFetcher interface {
	Fetch(ctx context.Context, sess *session.Session) (*auth.Credential, error)
}

// SetlistResolver resolves a setlist.fm page URL.
type SetlistResolver interface {
	Resolve(ctx context.Context, url string) (*setlistfm.Setlist, error)
}

// MusicService is the subset of the Spotify API the pipeline uses.
type MusicService interface {
	CurrentUserID(ctx context.Context, accessToken string) (string, error)
	CreatePlaylist(ctx context.Context, cred *auth.Credential, userID, name, description string) (*spotify.Playlist, error)
	MatchTracks(ctx context.Context, cred *auth.Credential, setlist *setlistfm.Setlist) (*spotify.MatchResult, error)
	AppendTracks(ctx context.Context, cred *auth.Credential, playlistID string, uris []string) error
}

// Service runs the two steps of playlist generation. It holds no state
// between calls; the caller passes the setlist back for the second step.
type Service struct {
	credentials CredentialFetcher
	setlists    SetlistResolver
	music       MusicService
	logger      *log.Logger
}

// New creates a new playlist service.
func New(credentials CredentialFetcher, setlists SetlistResolver, music MusicService, logger *log.Logger) *Service {
	return &Service{
		credentials: credentials,
		setlists:    setlists,
		music:       music,
		logger:      logger,
	}
}

// Generated is the outcome of Generate.
type Generated struct {
	Setlist  *setlistfm.Setlist `json:"setlist"`
	Playlist *spotify.Playlist  `json:"playlist"`
}

// Generate resolves the setlist at url and creates an empty playlist for it.
// Returns apperrors.ErrMissingRequiredField, without creating anything, when
// the setlist has no artist name or no usable event date.
func (s *Service) Generate(ctx context.Context, sess *session.Session, url string) (*Generated, error) {
	cred, err := s.credentials.Fetch(ctx, sess)
	if err != nil {
		return nil, err
	}

	setlist, err := s.setlists.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	name, err := PlaylistName(setlist)
	if err != nil {
		return nil, err
	}
	description, err := PlaylistDescription(setlist)
	if err != nil {
		return nil, err
	}

	userID, err := s.music.CurrentUserID(ctx, cred.AccessToken)
	if err != nil {
		return nil, err
	}

	playlist, err := s.music.CreatePlaylist(ctx, cred, userID, name, description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("generated playlist", "setlist", setlist.ID, "playlist", playlist.ID, "name", name)
	return &Generated{Setlist: setlist, Playlist: playlist}, nil
}

// Populate matches the setlist's songs on Spotify and adds the matches to the
// playlist in one request. A result with no matches is not an error.
func (s *Service) Populate(ctx context.Context, sess *session.Session, playlistID string, setlist *setlistfm.Setlist) (*spotify.MatchResult, error) {
	cred, err := s.credentials.Fetch(ctx, sess)
	if err != nil {
		return nil, err
	}

	result, err := s.music.MatchTracks(ctx, cred, setlist)
	if err != nil {
		return nil, err
	}

	if err := s.music.AppendTracks(ctx, cred, playlistID, result.Matched); err != nil {
		return nil, err
	}

	s.logger.Info("populated playlist", "playlist", playlistID,
		"matched", len(result.Matched), "unmatched", len(result.Unmatched))
	return result, nil
}

// PlaylistName returns "{year} {artist}".
func PlaylistName(setlist *setlistfm.Setlist) (string, error) {
	artist := setlist.ArtistName()
	if artist == "" {
		return "", fmt.Errorf("%w: artist name", apperrors.ErrMissingRequiredField)
	}

	date, err := eventDate(setlist)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(date.Year()) + " " + artist, nil
}

// PlaylistDescription returns "Live @ {venue}, {city} on {dd-MM-yyyy}".
func PlaylistDescription(setlist *setlistfm.Setlist) (string, error) {
	date, err := eventDate(setlist)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Live @ %s, %s on %s",
		setlist.VenueName(), setlist.CityName(), date.Format(descriptionDateLayout)), nil
}
