package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMalformedRecord is returned when a remote record is missing required fields
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotAuthenticated is returned when the provider is used before a token was acquired
	ErrNotAuthenticated = errors.New("client not authenticated")
)

// MembershipEntry is one (track, adder) pair on the monitored playlist.
type MembershipEntry struct {
	TrackID string
	UserID  string
}

type ChangeKind int

const (
	// ChangeAdded marks an entry present after but not before
	ChangeAdded ChangeKind = iota
	// ChangeRemoved marks an entry present before but not after
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

type ChangeEvent struct {
	Kind  ChangeKind
	Entry MembershipEntry
}

type Image struct {
	URL    string
	Width  int // 0 when unknown
	Height int // 0 when unknown
}

type ArtistRecord struct {
	ID   string
	Name string
}

type AlbumRecord struct {
	ID     string
	Name   string
	Images []Image
}

type TrackRecord struct {
	ID      string
	Name    string
	Album   AlbumRecord
	Artists []ArtistRecord
}

// ArtistNames returns the artist names in credit order.
func (t *TrackRecord) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		names = append(names, artist.Name)
	}
	return names
}

// ThumbnailURL returns the first album cover, or "" when the album has none.
func (t *TrackRecord) ThumbnailURL() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

type UserRecord struct {
	ID          string
	DisplayName string
	Images      []Image
	Followers   int
}

// AvatarURL returns the first profile image, or "" when the user has none.
func (u *UserRecord) AvatarURL() string {
	if len(u.Images) == 0 {
		return ""
	}
	return u.Images[0].URL
}

// MetadataProvider is the remote playlist service as seen by the monitor.
type MetadataProvider interface {
	// RefreshToken re-acquires the access credential and returns its expiry
	// (zero when the service did not report one).
	RefreshToken(ctx context.Context) (time.Time, error)
	// PlaylistEntries returns every (track, adder) pair, following pagination.
	PlaylistEntries(ctx context.Context, playlistID string) ([]MembershipEntry, error)
	Track(ctx context.Context, trackID string) (*TrackRecord, error)
	User(ctx context.Context, userID string) (*UserRecord, error)
}

// Notifier delivers one change to the configured chat sinks.
type Notifier interface {
	Dispatch(ctx context.Context, track *TrackRecord, user *UserRecord, kind ChangeKind) error
}

// MetricsRecorder receives monitor counters. The HTTP server implements it.
type MetricsRecorder interface {
	RecordPoll(status string)
	RecordChange(kind string)
	RecordNotification(sink, status string)
	RecordTokenRefresh(status string)
	RecordError(component, errorType string)
	SetPlaylistSize(size int)
}

type nopMetrics struct{}

func (nopMetrics) RecordPoll(string)                 {}
func (nopMetrics) RecordChange(string)               {}
func (nopMetrics) RecordNotification(string, string) {}
func (nopMetrics) RecordTokenRefresh(string)         {}
func (nopMetrics) RecordError(string, string)        {}
func (nopMetrics) SetPlaylistSize(int)               {}
