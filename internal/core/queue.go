package core

// Queue is an insertion-ordered list of tracks. It is append-only; the
// stored order is never shuffled.
type Queue struct {
	Tracks []Track `json:"tracks"`
}

// Append adds a track to the end of the queue.
func (q *Queue) Append(t Track) {
	q.Tracks = append(q.Tracks, t)
}

// IndexOf returns the position of the track with the same identity, or -1.
func (q *Queue) IndexOf(t *Track) int {
	if q == nil || t == nil {
		return -1
	}
	for i := range q.Tracks {
		if q.Tracks[i].Key() == t.Key() {
			return i
		}
	}
	return -1
}

// At returns the track at index i, or nil if i is out of range.
func (q *Queue) At(i int) *Track {
	if q == nil || i < 0 || i >= len(q.Tracks) {
		return nil
	}
	t := q.Tracks[i]
	return &t
}

// Snapshot returns a copy of the queued tracks.
func (q *Queue) Snapshot() []Track {
	if q == nil || len(q.Tracks) == 0 {
		return nil
	}
	out := make([]Track, len(q.Tracks))
	copy(out, q.Tracks)
	return out
}

// Len returns the total number of tracks in the queue.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}
