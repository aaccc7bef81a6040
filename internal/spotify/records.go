package spotify

import (
	"fmt"

	"github.com/zmb3/spotify/v2"

	"playlistnotify/internal/core"
)

// Explicit decoding of API objects into core records. Required fields missing from
// the response produce core.ErrMalformedRecord instead of zero values.

func decodeTrack(track *spotify.FullTrack) (*core.TrackRecord, error) {
	if track == nil {
		return nil, fmt.Errorf("%w: empty track response", core.ErrMalformedRecord)
	}
	if track.ID == "" {
		return nil, fmt.Errorf("%w: track without id", core.ErrMalformedRecord)
	}
	if track.Name == "" {
		return nil, fmt.Errorf("%w: track %s without name", core.ErrMalformedRecord, track.ID)
	}

	artists := make([]core.ArtistRecord, 0, len(track.Artists))
	for i, artist := range track.Artists {
		if artist.Name == "" {
			return nil, fmt.Errorf("%w: track %s artist %d without name", core.ErrMalformedRecord, track.ID, i)
		}
		artists = append(artists, core.ArtistRecord{
			ID:   string(artist.ID),
			Name: artist.Name,
		})
	}

	images, err := decodeImages(track.Album.Images)
	if err != nil {
		return nil, fmt.Errorf("track %s album: %w", track.ID, err)
	}

	return &core.TrackRecord{
		ID:   string(track.ID),
		Name: track.Name,
		Album: core.AlbumRecord{
			ID:     string(track.Album.ID),
			Name:   track.Album.Name,
			Images: images,
		},
		Artists: artists,
	}, nil
}

// decodeUser accepts a missing display name; Spotify reports null for some accounts.
func decodeUser(user *spotify.User) (*core.UserRecord, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: empty user response", core.ErrMalformedRecord)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user without id", core.ErrMalformedRecord)
	}

	images, err := decodeImages(user.Images)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}

	return &core.UserRecord{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
		Images:      images,
		Followers:   int(user.Followers.Count),
	}, nil
}

func decodeImages(images []spotify.Image) ([]core.Image, error) {
	decoded := make([]core.Image, 0, len(images))
	for i, img := range images {
		if img.URL == "" {
			return nil, fmt.Errorf("%w: image %d without url", core.ErrMalformedRecord, i)
		}
		decoded = append(decoded, core.Image{
			URL:    img.URL,
			Width:  int(img.Width),
			Height: int(img.Height),
		})
	}
	return decoded, nil
}
