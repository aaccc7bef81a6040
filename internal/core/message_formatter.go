package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"playlistnotify/internal/chat"
	"playlistnotify/internal/i18n"
)

// Notification Formatting
// Builds the title/description/thumbnail for one playlist change. Rendering of links
// and emphasis is left to the Markup of the sink the notification is headed for.

const spotifyWebURL = "https://open.spotify.com"

// TrackURL returns the canonical web URL of a track.
func TrackURL(trackID string) string {
	return fmt.Sprintf("%s/track/%s", spotifyWebURL, trackID)
}

// UserURL returns the canonical profile URL of a user.
func UserURL(userID string) string {
	return fmt.Sprintf("%s/user/%s", spotifyWebURL, userID)
}

// PlaylistURL returns the canonical web URL of a playlist.
func PlaylistURL(playlistID string) string {
	return fmt.Sprintf("%s/playlist/%s", spotifyWebURL, playlistID)
}

// Formatter builds notifications for the monitored playlist.
type Formatter struct {
	playlistID        string
	localizer         *i18n.Localizer
	useSenderIdentity bool
}

func NewFormatter(playlistID string, localizer *i18n.Localizer, useSenderIdentity bool) *Formatter {
	if localizer == nil {
		localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}
	return &Formatter{
		playlistID:        playlistID,
		localizer:         localizer,
		useSenderIdentity: useSenderIdentity,
	}
}

// Format renders one change. user may be nil when the playlist did not report who
// added the track.
func (f *Formatter) Format(markup chat.Markup, track *TrackRecord, user *UserRecord, kind ChangeKind) *chat.Notification {
	n := &chat.Notification{
		Title:        f.title(kind),
		Description:  f.description(markup, track, user, kind),
		ThumbnailURL: track.ThumbnailURL(),
	}

	if f.useSenderIdentity && user != nil && user.ID != "" {
		n.SenderName = displayName(user)
		n.SenderAvatarURL = user.AvatarURL()
	}

	return n
}

func (f *Formatter) title(kind ChangeKind) string {
	if kind == ChangeRemoved {
		return f.localizer.T("notify.title.removed")
	}
	return f.localizer.T("notify.title.added")
}

func (f *Formatter) description(markup chat.Markup, track *TrackRecord, user *UserRecord, kind ChangeKind) string {
	artists := make([]string, 0, len(track.Artists))
	for _, name := range track.ArtistNames() {
		artists = append(artists, markup.Escape(clean(name)))
	}

	trackLine := markup.Underline(markup.Link(clean(track.Name), TrackURL(track.ID))) +
		" - " + strings.Join(artists, ", ")

	var userRef string
	if user == nil || user.ID == "" {
		userRef = markup.Escape(f.localizer.T("notify.unknown_user"))
	} else {
		userRef = markup.Link(clean(displayName(user)), UserURL(user.ID))
	}

	actionKey := "notify.action.added"
	if kind == ChangeRemoved {
		actionKey = "notify.action.removed"
	}

	return strings.Join([]string{
		trackLine,
		f.localizer.T(actionKey, userRef),
		markup.Escape(PlaylistURL(f.playlistID)),
	}, "\n")
}

// displayName falls back to the user id; Spotify reports null names for some accounts.
func displayName(user *UserRecord) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.ID
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
