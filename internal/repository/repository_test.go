package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"photogram/internal/db/dbtest"
	"photogram/internal/models"
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	users    UserRepository
	posts    PostRepository
	likes    LikeRepository
	comments CommentRepository
	follows  FollowRepository
}

func newFixture(t *testing.T) *fixture {
	gdb := dbtest.Open(t)
	return &fixture{
		ctx:      context.Background(),
		db:       gdb,
		users:    NewUserRepository(gdb),
		posts:    NewPostRepository(gdb),
		likes:    NewLikeRepository(gdb),
		comments: NewCommentRepository(gdb),
		follows:  NewFollowRepository(gdb),
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	hash := "hash"
	u := &models.User{Username: username, Email: username + "@example.com", Name: username, PasswordHash: &hash, IsActive: true}
	require.NoError(t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) post(t *testing.T, owner *models.User, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: owner.ID, ImageURL: "https://img.example.com/" + owner.Username + ".jpg"}
	p.CreatedAt = at
	require.NoError(t, f.posts.Create(f.ctx, p))
	return p
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, IsUniqueViolation(errors.New("unique")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestUserUniqueness(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	dup := &models.User{Username: "alice", Email: "other@example.com", Name: "A"}
	err := f.users.Create(f.ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)

	exists, err := f.users.ExistsByEmailOrUsername(f.ctx, "nobody@example.com", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.users.FindByEmail(f.ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateIfAbsentAndLinkFederated(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	linked, err := f.users.LinkFederated(f.ctx, alice.Email, "uid-1")
	require.NoError(t, err)
	assert.True(t, linked)

	// ya enlazada: no se sobrescribe
	linked, err = f.users.LinkFederated(f.ctx, alice.Email, "uid-2")
	require.NoError(t, err)
	assert.False(t, linked)

	uid := "uid-1"
	clash := &models.User{Username: "someone", Email: "someone@example.com", Name: "S", FederatedID: &uid}
	created, err := f.users.CreateIfAbsent(f.ctx, clash)
	require.NoError(t, err)
	assert.False(t, created)

	uid3 := "uid-3"
	fresh := &models.User{Username: "bob", Email: "bob@example.com", Name: "Bob", FederatedID: &uid3, IsActive: true}
	created, err = f.users.CreateIfAbsent(f.ctx, fresh)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := f.users.FindByFederatedID(f.ctx, "uid-3")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.False(t, got.HasPassword())
}

func TestSearchEscapesWildcards(t *testing.T) {
	f := newFixture(t)
	me := f.user(t, "me")
	f.user(t, "Alice")
	f.user(t, "malice")
	f.user(t, "bob_smith")
	f.user(t, "bobXsmith")

	got, err := f.users.Search(f.ctx, "ALI", me.ID, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Username)
	assert.Equal(t, "malice", got[1].Username)

	got, err = f.users.Search(f.ctx, "b_s", me.ID, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob_smith", got[0].Username)

	got, err = f.users.Search(f.ctx, "me", me.ID, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeedPagesAreDisjointAndExhaustive(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")
	c := f.user(t, "c")
	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: a.ID, FollowedID: b.ID}))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	want := map[string]bool{}
	for i := 0; i < 7; i++ {
		// marcas de tiempo repetidas para ejercitar el desempate por id
		at := base.Add(time.Duration(i/2) * time.Minute)
		want[f.post(t, a, at).ID] = true
		want[f.post(t, b, at).ID] = true
		f.post(t, c, at)
	}

	for _, limit := range []int{1, 3, 5, 14, 50} {
		seen := map[string]bool{}
		var total int64
		for offset := 0; ; offset += limit {
			posts, n, err := f.posts.Feed(f.ctx, a.ID, Page{Offset: offset, Limit: limit})
			require.NoError(t, err)
			total = n
			if len(posts) == 0 {
				break
			}
			for _, p := range posts {
				assert.False(t, seen[p.ID], "post %s repeated with limit %d", p.ID, limit)
				seen[p.ID] = true
				assert.NotEmpty(t, p.User.Username)
			}
		}
		assert.Equal(t, int64(len(want)), total)
		assert.Equal(t, want, seen, "limit %d", limit)
	}
}

func TestDeletePostRemovesLikesAndComments(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")
	p := f.post(t, a, time.Now())

	require.NoError(t, f.likes.Create(f.ctx, &models.Like{UserID: b.ID, PostID: p.ID}))
	require.NoError(t, f.comments.Create(f.ctx, &models.Comment{UserID: b.ID, PostID: p.ID, Content: "nice"}))

	require.NoError(t, f.posts.Delete(f.ctx, p.ID))

	var likes, comments int64
	f.db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes)
	f.db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	assert.ErrorIs(t, f.posts.Delete(f.ctx, p.ID), ErrNotFound)
}

func TestLikeUniqueAndStats(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")
	p1 := f.post(t, a, time.Now())
	p2 := f.post(t, a, time.Now())

	require.NoError(t, f.likes.Create(f.ctx, &models.Like{UserID: b.ID, PostID: p1.ID}))
	err := f.likes.Create(f.ctx, &models.Like{UserID: b.ID, PostID: p1.ID})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, f.comments.Create(f.ctx, &models.Comment{UserID: a.ID, PostID: p1.ID, Content: "first"}))

	stats, err := f.posts.Stats(f.ctx, b.ID, []string{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, PostStats{Likes: 1, Comments: 1, Liked: true}, stats[p1.ID])
	assert.Equal(t, PostStats{}, stats[p2.ID])

	removed, err := f.likes.Delete(f.ctx, b.ID, p1.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = f.likes.Delete(f.ctx, b.ID, p1.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLikeOnMissingPostIsNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	err := f.likes.Create(f.ctx, &models.Like{UserID: a.ID, PostID: "does-not-exist"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowsListingAndCounts(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")
	c := f.user(t, "c")

	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: b.ID, FollowedID: a.ID}))
	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: c.ID, FollowedID: a.ID}))
	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: a.ID, FollowedID: c.ID}))
	assert.ErrorIs(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: a.ID, FollowedID: c.ID}), ErrDuplicate)

	counts, err := f.follows.Counts(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{FollowedBy: 2, Following: 1}, counts)

	followers, total, err := f.follows.Followers(f.ctx, a.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, followers, 2)
	names := []string{followers[0].Follower.Username, followers[1].Follower.Username}
	assert.ElementsMatch(t, []string{"b", "c"}, names)

	following, total, err := f.follows.Following(f.ctx, a.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "c", following[0].Followed.Username)

	set, err := f.follows.FollowingSet(f.ctx, a.ID, []string{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{c.ID: true}, set)

	removed, err := f.follows.Delete(f.ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	ok, err := f.follows.Exists(f.ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowsHideDeactivatedUsers(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	b := f.user(t, "b")
	c := f.user(t, "c")

	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: b.ID, FollowedID: a.ID}))
	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: c.ID, FollowedID: a.ID}))
	require.NoError(t, f.follows.Create(f.ctx, &models.Follow{FollowerID: a.ID, FollowedID: c.ID}))
	require.NoError(t, f.users.SetActive(f.ctx, c.ID, false))

	counts, err := f.follows.Counts(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{FollowedBy: 1, Following: 0}, counts)

	byUser, err := f.follows.FollowerCounts(f.ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byUser[a.ID])

	followers, total, err := f.follows.Followers(f.ctx, a.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, followers, 1)
	assert.Equal(t, "b", followers[0].Follower.Username)

	following, total, err := f.follows.Following(f.ctx, a.ID, Page{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, following)

	// la arista sigue en la tabla y vuelve al reactivar
	require.NoError(t, f.users.SetActive(f.ctx, c.ID, true))
	counts, err = f.follows.Counts(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{FollowedBy: 2, Following: 1}, counts)
}

func TestCommentsNewestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a")
	p := f.post(t, a, time.Now())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		c := &models.Comment{UserID: a.ID, PostID: p.ID, Content: fmt.Sprintf("c%d", i)}
		c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, f.comments.Create(f.ctx, c))
	}

	list, total, err := f.comments.ListByPost(f.ctx, p.ID, Page{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].Content)
	assert.Equal(t, "c1", list[1].Content)
	assert.Equal(t, "a", list[0].User.Username)
}
