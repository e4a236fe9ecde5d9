package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/testutil"
)

func newDirectory(t *testing.T) (*RoomDirectory, *database.Database) {
	t.Helper()
	db, _ := testutil.SQLite(t)
	return NewRoomDirectory(db, testutil.Logger()), db
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"General":          "general",
		"Hello, World!":    "hello-world",
		"  spaced   out  ": "spaced-out",
		"Café Crème":       "cafe-creme",
		"already-a-slug":   "already-a-slug",
		"snake_case name":  "snake_case-name",
		"--dashes--":       "dashes",
		"Room #42":         "room-42",
		"":                 "room",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
	assert.Equal(t, "room", Slugify("日本語"))
	assert.Len(t, Slugify(strings.Repeat("ab ", 40)), 50)
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	alice := testutil.User(t, db, "alice")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "  Team Chat ", Description: "daily"}, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, "Team Chat", room.Name)
	assert.Equal(t, "team-chat", room.Slug)
	assert.Equal(t, models.DefaultMaxMembers, room.MaxMembers)
	assert.Equal(t, alice.ID, room.CreatedBy)
	assert.Equal(t, "alice", room.Creator.Username)
	assert.True(t, room.HasMember(alice.ID), "creator is a member")
}

func TestCreateRoomSlugSuffixes(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	alice := testutil.User(t, db, "alice")

	var slugs []string
	for i := 0; i < 3; i++ {
		room, err := dir.Create(ctx, CreateRoomInput{Name: "Foo"}, alice.ID)
		require.NoError(t, err)
		slugs = append(slugs, room.Slug)
	}
	assert.Equal(t, []string{"foo", "foo-1", "foo-2"}, slugs)

	// "foo-bar" shares the prefix but is a different base.
	other, err := dir.Create(ctx, CreateRoomInput{Name: "Foo Bar"}, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo-bar", other.Slug)
}

func TestCreateRoomConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	alice := testutil.User(t, db, "alice")
	bob := testutil.User(t, db, "bob")

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		slugs []string
	)
	for _, creator := range []uuid.UUID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(creator uuid.UUID) {
			defer wg.Done()
			room, err := dir.Create(ctx, CreateRoomInput{Name: "foo"}, creator)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			slugs = append(slugs, room.Slug)
			mu.Unlock()
		}(creator)
	}
	wg.Wait()

	sort.Strings(slugs)
	assert.Equal(t, []string{"foo", "foo-1"}, slugs)
}

func TestCreateRoomValidation(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	alice := testutil.User(t, db, "alice")

	cases := []struct {
		name string
		in   CreateRoomInput
	}{
		{"blank name", CreateRoomInput{Name: "   "}},
		{"name too long", CreateRoomInput{Name: strings.Repeat("a", 256)}},
		{"negative capacity", CreateRoomInput{Name: "x", MaxMembers: -1}},
		{"capacity over limit", CreateRoomInput{Name: "x", MaxMembers: models.MaxMembersLimit + 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dir.Create(ctx, tc.in, alice.ID)
			assert.ErrorIs(t, err, ErrInvalidRoom)
		})
	}
}

func TestResolveUnknownSlug(t *testing.T) {
	dir, _ := newDirectory(t)
	_, err := dir.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinCapacity(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	owner := testutil.User(t, db, "owner")
	second := testutil.User(t, db, "second")
	third := testutil.User(t, db, "third")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "small", MaxMembers: 2}, owner.ID)
	require.NoError(t, err)

	result, err := dir.Join(ctx, room, second.ID)
	require.NoError(t, err)
	assert.Equal(t, Joined, result)

	_, err = dir.Join(ctx, room, third.ID)
	assert.ErrorIs(t, err, ErrRoomFull)

	// A member re-joining a full room is not an error.
	result, err = dir.Join(ctx, room, second.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyMember, result)

	members, err := dir.Members(ctx, room)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestJoinConcurrentNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	owner := testutil.User(t, db, "owner")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "tight", MaxMembers: 3}, owner.ID)
	require.NoError(t, err)

	joiners := make([]*models.User, 6)
	for i := range joiners {
		joiners[i] = testutil.User(t, db, "joiner"+string(rune('a'+i)))
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		full   int
	)
	for _, u := range joiners {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := dir.Join(ctx, room, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case assert.ErrorIs(t, err, ErrRoomFull):
				full++
			}
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, joined)
	assert.Equal(t, 4, full)

	members, err := dir.Members(ctx, room)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestJoinPrivateRoom(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	owner := testutil.User(t, db, "owner")
	guest := testutil.User(t, db, "guest")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "secret", IsPrivate: true}, owner.ID)
	require.NoError(t, err)

	_, err = dir.Join(ctx, room, guest.ID)
	assert.ErrorIs(t, err, ErrPrivateRoom)

	result, err := dir.Join(ctx, room, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyMember, result)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	owner := testutil.User(t, db, "owner")
	guest := testutil.User(t, db, "guest")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "lobby"}, owner.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, dir.Leave(ctx, room, guest.ID), ErrNotMember)

	_, err = dir.Join(ctx, room, guest.ID)
	require.NoError(t, err)
	require.NoError(t, dir.Leave(ctx, room, guest.ID))

	room, err = dir.Resolve(ctx, "lobby")
	require.NoError(t, err)
	assert.False(t, room.HasMember(guest.ID))
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	owner := testutil.User(t, db, "owner")
	guest := testutil.User(t, db, "guest")

	room, err := dir.Create(ctx, CreateRoomInput{Name: "lobby"}, owner.ID)
	require.NoError(t, err)
	_, err = dir.Join(ctx, room, guest.ID)
	require.NoError(t, err)

	members, err := dir.Members(ctx, room)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.ElementsMatch(t, []string{"owner", "guest"}, []string{members[0].Username, members[1].Username})
}

func TestListVisible(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	alice := testutil.User(t, db, "alice")
	bob := testutil.User(t, db, "bob")
	carol := testutil.User(t, db, "carol")

	public, err := dir.Create(ctx, CreateRoomInput{Name: "public"}, alice.ID)
	require.NoError(t, err)
	_, err = dir.Create(ctx, CreateRoomInput{Name: "alice only", IsPrivate: true}, alice.ID)
	require.NoError(t, err)
	_, err = dir.Join(ctx, public, bob.ID)
	require.NoError(t, err)

	slugs := func(p *RoomPage) []string {
		out := make([]string, 0, len(p.Rooms))
		for _, r := range p.Rooms {
			out = append(out, r.Slug)
		}
		sort.Strings(out)
		return out
	}

	page, err := dir.ListVisible(ctx, alice.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice-only", "public"}, slugs(page))
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)

	page, err = dir.ListVisible(ctx, carol.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, slugs(page))
	assert.EqualValues(t, 2, page.Rooms[0].MemberCount)
	assert.Equal(t, "alice", page.Rooms[0].Creator.Username)

	page, err = dir.ListVisible(ctx, alice.ID, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page.Rooms, 1)
	assert.EqualValues(t, 2, page.Total)
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-5))
	assert.Equal(t, 10, ClampPageSize(10))
	assert.Equal(t, MaxPageSize, ClampPageSize(MaxPageSize+1))
}
