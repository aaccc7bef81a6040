// Package spotify provides the Spotify Web API metadata provider used by the playlist monitor.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"playlistnotify/internal/core"
	"playlistnotify/internal/store"
)

const (
	// PlaylistPageLimit is the maximum page size of the playlist items endpoint
	PlaylistPageLimit = 100
	// playlistItemFields trims playlist pages down to what the monitor compares.
	// track.type is needed to tell tracks from episodes when decoding.
	playlistItemFields = "items(added_by.id,track(id,type)),next"
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	tracks *store.RecordCache[*core.TrackRecord]
	users  *store.RecordCache[*core.UserRecord]
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		tracks: store.NewRecordCache[*core.TrackRecord](config.CacheSize, config.CacheTTL),
		users:  store.NewRecordCache[*core.UserRecord](config.CacheSize, config.CacheTTL),
	}
}

// RefreshToken exchanges the application credentials for a new bearer token and
// swaps the API client over to it. It returns the token expiry.
func (c *Client) RefreshToken(ctx context.Context) (time.Time, error) {
	tokenURL := c.config.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.config.RequestTimeout})
	token, err := cc.Token(tokenCtx)
	if err != nil {
		return time.Time{}, fmt.Errorf("client credentials exchange failed: %w", err)
	}

	httpClient := oauth2.NewClient(tokenCtx, oauth2.StaticTokenSource(token))
	httpClient.Timeout = c.config.RequestTimeout

	var opts []spotify.ClientOption
	if c.config.APIBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.config.APIBaseURL))
	}
	c.client = spotify.New(httpClient, opts...)

	c.logger.Info("Access token refreshed", zap.Time("expiry", token.Expiry))
	return token.Expiry, nil
}

// PlaylistEntries returns every (track, adder) pair on the playlist. Pages are
// followed iteratively; a failure on any page fails the whole listing.
func (c *Client) PlaylistEntries(ctx context.Context, playlistID string) ([]core.MembershipEntry, error) {
	var entries []core.MembershipEntry
	err := c.withReauth(ctx, func() error {
		var fetchErr error
		entries, fetchErr = c.fetchPlaylistEntries(ctx, playlistID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) fetchPlaylistEntries(ctx context.Context, playlistID string) ([]core.MembershipEntry, error) {
	if c.client == nil {
		return nil, core.ErrNotAuthenticated
	}

	opts := []spotify.RequestOption{
		spotify.Fields(playlistItemFields),
		spotify.Limit(PlaylistPageLimit),
	}
	if c.config.Market != "" {
		opts = append(opts, spotify.Market(c.config.Market))
	}

	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	var entries []core.MembershipEntry
	pages, skipped := 1, 0

	for {
		for i := range page.Items {
			item := &page.Items[i]
			// Only tracks with an id can be resolved (no episodes, local files or null items)
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				skipped++
				continue
			}
			entries = append(entries, core.MembershipEntry{
				TrackID: string(item.Track.Track.ID),
				UserID:  string(item.AddedBy.ID),
			})
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist page %d: %w", pages+1, err)
		}
		pages++
	}

	c.logger.Debug("Retrieved playlist entries",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(entries)),
		zap.Int("pages", pages),
		zap.Int("skipped", skipped))

	return entries, nil
}

// Track resolves a track id, served from cache while fresh.
func (c *Client) Track(ctx context.Context, trackID string) (*core.TrackRecord, error) {
	if record, ok := c.tracks.Get(trackID); ok {
		return record, nil
	}

	var track *spotify.FullTrack
	err := c.withReauth(ctx, func() error {
		if c.client == nil {
			return core.ErrNotAuthenticated
		}
		var getErr error
		track, getErr = c.client.GetTrack(ctx, spotify.ID(trackID))
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get track %s: %w", trackID, err)
	}

	record, err := decodeTrack(track)
	if err != nil {
		return nil, fmt.Errorf("failed to decode track %s: %w", trackID, err)
	}

	c.tracks.Add(trackID, record)
	return record, nil
}

// User resolves a user id, served from cache while fresh.
func (c *Client) User(ctx context.Context, userID string) (*core.UserRecord, error) {
	if record, ok := c.users.Get(userID); ok {
		return record, nil
	}

	var user *spotify.User
	err := c.withReauth(ctx, func() error {
		if c.client == nil {
			return core.ErrNotAuthenticated
		}
		var getErr error
		user, getErr = c.client.GetUsersPublicProfile(ctx, spotify.ID(userID))
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	record, err := decodeUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}

	c.users.Add(userID, record)
	return record, nil
}

// withReauth runs call and, when the API rejects the token, refreshes it once and
// retries. A second rejection is returned as is.
func (c *Client) withReauth(ctx context.Context, call func() error) error {
	err := call()
	if err == nil || !isUnauthorized(err) {
		return err
	}

	c.logger.Warn("Access token rejected, refreshing", zap.Error(err))
	if _, refreshErr := c.RefreshToken(ctx); refreshErr != nil {
		return fmt.Errorf("re-authentication failed: %w", refreshErr)
	}

	return call()
}

func isUnauthorized(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status == http.StatusUnauthorized
	}
	return false
}
