package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Playlist Monitoring
// Polls the playlist membership on a fixed interval, diffs it against the previous
// snapshot and notifies every addition and removal.

type MonitorState int32

const (
	// StateUninitialized means no snapshot has been taken yet
	StateUninitialized MonitorState = iota
	// StatePrimed means the baseline snapshot exists but nothing was compared yet
	StatePrimed
	// StatePolling means at least one diff has been computed
	StatePolling
)

func (s MonitorState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrimed:
		return "primed"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// Monitor owns the polling cadence and the retained snapshot.
// Tick and Run must be called from a single goroutine; State, Ready and
// SnapshotSize are safe to call from anywhere.
type Monitor struct {
	config   MonitorConfig
	provider MetadataProvider
	notifier Notifier
	metrics  MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time

	before      Snapshot
	nextRefresh time.Time

	state        atomic.Int32
	snapshotSize atomic.Int64
}

// NewMonitor creates a monitor for config.PlaylistID. metrics may be nil.
func NewMonitor(config MonitorConfig, provider MetadataProvider, notifier Notifier,
	metrics MetricsRecorder, logger *zap.Logger) *Monitor {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.TokenRefreshInterval <= 0 {
		config.TokenRefreshInterval = DefaultTokenRefreshInterval
	}

	return &Monitor{
		config:   config,
		provider: provider,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *Monitor) State() MonitorState {
	return MonitorState(m.state.Load())
}

// Ready reports whether the baseline snapshot has been taken.
func (m *Monitor) Ready() bool {
	return m.State() != StateUninitialized
}

// SnapshotSize returns the number of entries in the retained snapshot.
func (m *Monitor) SnapshotSize() int {
	return int(m.snapshotSize.Load())
}

// Authenticate acquires the first access token. Call before Run.
func (m *Monitor) Authenticate(ctx context.Context) error {
	return m.refreshToken(ctx)
}

// Run polls until ctx is cancelled. A failed iteration is logged and retried after
// the regular interval; it never ends the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Starting playlist monitoring",
		zap.String("playlistID", m.config.PlaylistID),
		zap.Duration("interval", m.config.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Playlist monitoring stopped")
			return nil
		case <-timer.C:
			if err := m.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					m.logger.Info("Playlist monitoring stopped")
					return nil
				}
				m.logger.Error("Playlist poll failed",
					zap.String("playlistID", m.config.PlaylistID),
					zap.String("state", m.State().String()),
					zap.Error(err))
			}
			timer.Reset(m.config.Interval)
		}
	}
}

// Tick performs one iteration. The retained snapshot is only replaced after a
// complete listing was fetched; per-change failures do not prevent the replacement.
func (m *Monitor) Tick(ctx context.Context) error {
	if err := m.refreshTokenIfDue(ctx); err != nil {
		m.metrics.RecordPoll(statusError)
		return err
	}

	entries, err := m.provider.PlaylistEntries(ctx, m.config.PlaylistID)
	if err != nil {
		m.metrics.RecordPoll(statusError)
		m.metrics.RecordError("monitor", "fetch_playlist")
		return fmt.Errorf("failed to fetch playlist %s: %w", m.config.PlaylistID, err)
	}

	after := NewSnapshot(entries...)
	m.metrics.RecordPoll(statusSuccess)
	m.metrics.SetPlaylistSize(after.Len())

	if m.State() == StateUninitialized {
		m.commit(after)
		m.state.Store(int32(StatePrimed))
		m.logger.Info("Playlist snapshot primed",
			zap.String("playlistID", m.config.PlaylistID),
			zap.Int("entries", after.Len()))
		return nil
	}

	added, removed := Diff(m.before, after)
	if added.Len() > 0 || removed.Len() > 0 {
		m.logger.Debug("Playlist membership changed",
			zap.Int("added", added.Len()),
			zap.Int("removed", removed.Len()))
	}

	for _, event := range Events(added, removed) {
		m.handleChange(ctx, event)
	}

	m.commit(after)
	m.state.Store(int32(StatePolling))
	return nil
}

func (m *Monitor) commit(s Snapshot) {
	m.before = s
	m.snapshotSize.Store(int64(s.Len()))
}

func (m *Monitor) handleChange(ctx context.Context, event ChangeEvent) {
	entry := event.Entry
	m.metrics.RecordChange(event.Kind.String())

	track, err := m.provider.Track(ctx, entry.TrackID)
	if err != nil {
		m.metrics.RecordError("monitor", "track_lookup")
		m.logger.Error("Failed to resolve changed track, skipping notification",
			zap.String("kind", event.Kind.String()),
			zap.String("trackID", entry.TrackID),
			zap.String("userID", entry.UserID),
			zap.Error(err))
		return
	}

	user := m.resolveUser(ctx, entry)

	fields := []zap.Field{
		zap.String("kind", event.Kind.String()),
		zap.String("trackID", track.ID),
		zap.String("trackName", track.Name),
		zap.String("artists", strings.Join(track.ArtistNames(), ", ")),
		zap.String("userID", entry.UserID),
	}
	if user != nil {
		fields = append(fields, zap.String("userName", user.DisplayName))
	}
	m.logger.Info("Playlist change detected", fields...)

	if err := m.notifier.Dispatch(ctx, track, user, event.Kind); err != nil {
		m.logger.Warn("Change notification incomplete", append(fields, zap.Error(err))...)
		return
	}

	m.logger.Info("Change notified", fields...)
}

// resolveUser returns nil when the playlist did not record an adder. A failed
// lookup degrades to a record carrying only the id.
func (m *Monitor) resolveUser(ctx context.Context, entry MembershipEntry) *UserRecord {
	if entry.UserID == "" {
		return nil
	}

	user, err := m.provider.User(ctx, entry.UserID)
	if err != nil {
		m.metrics.RecordError("monitor", "user_lookup")
		m.logger.Warn("Failed to resolve user, notifying with user ID only",
			zap.String("userID", entry.UserID),
			zap.Error(err))
		return &UserRecord{ID: entry.UserID}
	}
	return user
}

func (m *Monitor) refreshTokenIfDue(ctx context.Context) error {
	if !m.nextRefresh.IsZero() && m.now().Before(m.nextRefresh) {
		return nil
	}
	return m.refreshToken(ctx)
}

func (m *Monitor) refreshToken(ctx context.Context) error {
	issued := m.now()

	expiry, err := m.provider.RefreshToken(ctx)
	if err != nil {
		m.metrics.RecordTokenRefresh(statusError)
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	m.metrics.RecordTokenRefresh(statusSuccess)
	m.nextRefresh = nextRefreshAt(issued, expiry, m.config.TokenRefreshInterval)
	m.logger.Debug("Access token refreshed",
		zap.Time("expiry", expiry),
		zap.Time("nextRefresh", m.nextRefresh))
	return nil
}

// nextRefreshAt schedules the next refresh halfway through the token lifetime.
func nextRefreshAt(issued, expiry time.Time, fallback time.Duration) time.Time {
	if expiry.IsZero() || !expiry.After(issued) {
		return issued.Add(fallback)
	}
	return issued.Add(expiry.Sub(issued) / 2)
}
