package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/social-api/internal/model"
	"github.com/iliyamo/social-api/internal/repository"
)

// MemDB is an in-memory stand-in for the MySQL repositories with the same
// ownership and soft-delete rules. It is exported for the scenario tests in
// package handler_test.
type MemDB struct {
	mu       sync.Mutex
	nextID   uint64
	users    map[uint64]model.User
	tweets   map[uint64]model.Tweet
	comments map[uint64]model.Comment
	follows  map[uint64]model.Follow
}

func NewMemDB() *MemDB {
	return &MemDB{
		users:    map[uint64]model.User{},
		tweets:   map[uint64]model.Tweet{},
		comments: map[uint64]model.Comment{},
		follows:  map[uint64]model.Follow{},
	}
}

func (db *MemDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func sortedValues[T any](m map[uint64]T, keep func(T) bool) []T {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		if keep(m[k]) {
			out = append(out, m[k])
		}
	}
	return out
}

func (db *MemDB) Users() *MemUsers       { return &MemUsers{db} }
func (db *MemDB) Tweets() *MemTweets     { return &MemTweets{db} }
func (db *MemDB) Comments() *MemComments { return &MemComments{db} }
func (db *MemDB) Follows() *MemFollows   { return &MemFollows{db} }

// Comment returns the stored comment regardless of deletion.
func (db *MemDB) Comment(id uint64) (model.Comment, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.comments[id]
	return c, ok
}

type MemUsers struct{ db *MemDB }

func (s *MemUsers) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, other := range s.db.users {
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	now := time.Now().UTC()
	u.ID, u.CreatedAt, u.UpdatedAt = s.db.id(), now, now
	s.db.users[u.ID] = *u
	return nil
}

func (s *MemUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range s.db.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *MemUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok || u.DeletedAt != nil {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *MemUsers) List(context.Context) ([]model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.users, func(u model.User) bool { return u.DeletedAt == nil }), nil
}

func (s *MemUsers) UpdateProfile(_ context.Context, id uint64, patch model.UserPatch) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok || u.DeletedAt != nil {
		return model.User{}, repository.ErrNotFound
	}
	next := patch.Apply(u)
	next.Email = repository.NormalizeEmail(next.Email)
	for oid, other := range s.db.users {
		if oid != id && other.Email == next.Email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	next.UpdatedAt = time.Now().UTC()
	s.db.users[id] = next
	return next, nil
}

func (s *MemUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.db.users[id] = u
	return nil
}

func (s *MemUsers) SoftDelete(_ context.Context, id uint64) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok || u.DeletedAt != nil {
		return model.User{}, repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	s.db.users[id] = u
	return u, nil
}

type MemTweets struct{ db *MemDB }

func (s *MemTweets) Create(_ context.Context, t *model.Tweet) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	now := time.Now().UTC()
	t.ID, t.CreatedAt, t.UpdatedAt = s.db.id(), now, now
	s.db.tweets[t.ID] = *t
	return nil
}

func (s *MemTweets) GetByID(_ context.Context, id uint64) (model.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tweets[id]
	if !ok || t.DeletedAt != nil {
		return model.Tweet{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *MemTweets) List(context.Context) ([]model.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.tweets, func(t model.Tweet) bool { return t.DeletedAt == nil }), nil
}

func (s *MemTweets) ListByUser(_ context.Context, userID uint64) ([]model.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.tweets, func(t model.Tweet) bool { return t.DeletedAt == nil && t.UserID == userID }), nil
}

func (s *MemTweets) UpdateByIDAndOwner(_ context.Context, id, ownerID uint64, patch model.TweetPatch) (model.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tweets[id]
	if !ok || t.DeletedAt != nil || t.UserID != ownerID {
		return model.Tweet{}, repository.ErrNotFoundOrForbidden
	}
	t = patch.Apply(t)
	s.db.tweets[id] = t
	return t, nil
}

func (s *MemTweets) DeleteByIDAndOwner(_ context.Context, id, ownerID uint64) (model.Tweet, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tweets[id]
	if !ok || t.DeletedAt != nil || t.UserID != ownerID {
		return model.Tweet{}, repository.ErrNotFoundOrForbidden
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	s.db.tweets[id] = t
	return t, nil
}

type MemComments struct{ db *MemDB }

func (s *MemComments) Create(_ context.Context, c *model.Comment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t, ok := s.db.tweets[c.TweetID]; !ok || t.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = s.db.id(), now, now
	s.db.comments[c.ID] = *c
	return nil
}

func (s *MemComments) GetByID(_ context.Context, id uint64) (model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok || c.DeletedAt != nil {
		return model.Comment{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *MemComments) List(context.Context) ([]model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.comments, func(c model.Comment) bool { return c.DeletedAt == nil }), nil
}

func (s *MemComments) ListByTweet(_ context.Context, tweetID uint64) ([]model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.comments, func(c model.Comment) bool { return c.DeletedAt == nil && c.TweetID == tweetID }), nil
}

func (s *MemComments) ListByUser(_ context.Context, userID uint64) ([]model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.comments, func(c model.Comment) bool { return c.DeletedAt == nil && c.UserID == userID }), nil
}

func (s *MemComments) UpdateTextByIDAndOwner(_ context.Context, id, ownerID uint64, text string) (model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok || c.DeletedAt != nil || c.UserID != ownerID {
		return model.Comment{}, repository.ErrNotFoundOrForbidden
	}
	c.Text = text
	s.db.comments[id] = c
	return c, nil
}

func (s *MemComments) DeleteByIDAndOwner(_ context.Context, id, ownerID uint64) (model.Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.comments[id]
	if !ok || c.DeletedAt != nil || c.UserID != ownerID {
		return model.Comment{}, repository.ErrNotFoundOrForbidden
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	s.db.comments[id] = c
	return c, nil
}

type MemFollows struct{ db *MemDB }

func (s *MemFollows) Create(_ context.Context, followerID, followingID uint64) (model.Follow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, f := range s.db.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID && f.DeletedAt == nil {
			return model.Follow{}, repository.ErrAlreadyFollowing
		}
	}
	if u, ok := s.db.users[followingID]; !ok || u.DeletedAt != nil {
		return model.Follow{}, repository.ErrNotFound
	}
	f := model.Follow{ID: s.db.id(), FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now().UTC()}
	s.db.follows[f.ID] = f
	return f, nil
}

func (s *MemFollows) List(context.Context) ([]model.Follow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.follows, func(f model.Follow) bool { return f.DeletedAt == nil }), nil
}

func (s *MemFollows) ListFollowers(_ context.Context, userID uint64) ([]model.Follow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.follows, func(f model.Follow) bool { return f.DeletedAt == nil && f.FollowingID == userID }), nil
}

func (s *MemFollows) ListFollowings(_ context.Context, userID uint64) ([]model.Follow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return sortedValues(s.db.follows, func(f model.Follow) bool { return f.DeletedAt == nil && f.FollowerID == userID }), nil
}

func (s *MemFollows) DeleteByFollowerAndFollowing(_ context.Context, followerID, followingID uint64) (model.Follow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, f := range s.db.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID && f.DeletedAt == nil {
			now := time.Now().UTC()
			f.DeletedAt = &now
			s.db.follows[id] = f
			return f, nil
		}
	}
	return model.Follow{}, repository.ErrNotFoundOrForbidden
}

var (
	_ UserStore    = (*MemUsers)(nil)
	_ TweetStore   = (*MemTweets)(nil)
	_ CommentStore = (*MemComments)(nil)
	_ FollowStore  = (*MemFollows)(nil)
)
