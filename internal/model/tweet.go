package model

import "time"

// Tweet represents a row of the `tweets` table.  UserID is the owner and the
// only column an update or delete is ever scoped by besides the id.
type Tweet struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	Text      string     `json:"text"`
	Photo     *string    `json:"photo"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TweetPatch is a partial tweet update; nil fields keep the stored value.
type TweetPatch struct {
	Text  *string
	Photo *string
}

// Empty reports whether no field is present.
func (p TweetPatch) Empty() bool { return p.Text == nil && p.Photo == nil }

// Apply merges the present fields over t.
func (p TweetPatch) Apply(t Tweet) Tweet {
	t.Text = pick(p.Text, t.Text)
	if p.Photo != nil {
		t.Photo = p.Photo
	}
	return t
}

// Comment represents a row of the `comments` table.
type Comment struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	TweetID   uint64     `json:"tweet_id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Follow represents a row of the `follows` table: FollowerID follows
// FollowingID.  Unfollowing sets DeletedAt.
type Follow struct {
	ID          uint64     `json:"id"`
	FollowerID  uint64     `json:"follower_id"`
	FollowingID uint64     `json:"following_id"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
