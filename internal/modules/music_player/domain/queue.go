package domain

import (
	"time"

	"github.com/samber/lo"
)

// Queue is a FIFO of upcoming tracks. The playing track is not part of it:
// it is popped off the head when playback moves on.
type Queue struct {
	tracks []*Track
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{
		tracks: make([]*Track, 0),
	}
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of upcoming tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < q.Len()
}

// List returns a copy of all upcoming tracks in play order.
func (q *Queue) List() []*Track {
	result := make([]*Track, q.Len())
	copy(result, q.tracks)
	return result
}

// Append adds tracks to the tail of the queue and returns the 1-based
// position of the first appended track.
func (q *Queue) Append(tracks ...*Track) int {
	position := q.Len() + 1
	q.tracks = append(q.tracks, tracks...)
	return position
}

// Pop removes and returns the head of the queue, or nil if the queue is empty.
func (q *Queue) Pop() *Track {
	if q.IsEmpty() {
		return nil
	}

	head := q.tracks[0]
	q.tracks[0] = nil
	q.tracks = q.tracks[1:]
	return head
}

// GetAt returns the track at the given 0-based index without removing it.
// Returns nil if the index is out of bounds.
func (q *Queue) GetAt(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	return q.tracks[index]
}

// RemoveAt removes and returns the track at the given 0-based index.
// Returns nil if the index is out of bounds.
func (q *Queue) RemoveAt(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}

	track := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return track
}

// Shuffle randomizes the order of upcoming tracks in place.
func (q *Queue) Shuffle() {
	q.tracks = lo.Shuffle(q.tracks)
}

// TotalDuration sums the known durations of all upcoming tracks.
func (q *Queue) TotalDuration() time.Duration {
	return lo.SumBy(q.tracks, func(t *Track) time.Duration {
		return t.Duration
	})
}

// Clear removes all tracks and returns how many were removed.
func (q *Queue) Clear() int {
	n := q.Len()
	q.tracks = make([]*Track, 0)
	return n
}
