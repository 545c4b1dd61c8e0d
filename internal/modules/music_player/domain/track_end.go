package domain

// TrackEndReason represents why the audio backend ended a track.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped explicitly.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the backend released the player.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldNotify returns true if this end reason must be reported as the
// completion of a play call. Explicit stops and replacements are suppressed
// so that stopping never restarts playback.
func (r TrackEndReason) ShouldNotify() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed || r == TrackEndCleanup
}

// IsAbnormal returns true if the track did not play through.
func (r TrackEndReason) IsAbnormal() bool {
	return r == TrackEndLoadFailed || r == TrackEndCleanup
}
