package domain

type (
	SongID string
	UserID string
)

// Song is the full record sent on every song-bearing event.
// Title, URL and thumbnails are opaque display strings supplied by the client.
type Song struct {
	ID             SongID   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	SmallThumbnail string   `json:"smallThumbnail"`
	LargeThumbnail string   `json:"largeThumbnail"`
	IsActive       bool     `json:"isActive"`
	Votes          []UserID `json:"votes"`
}

// VoteCount is the song's rank; one vote per user, enforced by the queue.
func (s *Song) VoteCount() int { return len(s.Votes) }

func (s *Song) HasVote(uid UserID) bool {
	for _, v := range s.Votes {
		if v == uid {
			return true
		}
	}
	return false
}
