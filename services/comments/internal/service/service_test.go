package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/target"
	"github.com/example/comment-platform/services/comments/internal/visibility"
)

type countingSource struct {
	inner     target.Source
	loadCalls int
}

func (s *countingSource) Load(ctx context.Context, id int64) (target.Target, error) {
	s.loadCalls++
	return s.inner.Load(ctx, id)
}

func (s *countingSource) Touch(ctx context.Context, id int64) error {
	return s.inner.Touch(ctx, id)
}

type fixture struct {
	svc    *Service
	reg    *target.Registry
	posts  *countingSource
	spaces *store.InMemorySpaceStore
	files  *store.InMemoryFileStore
	cache  *visibility.MemoryCache
}

// newFixture registers a public ("Post", 42) target in space 3 plus a
// second public ("Post", 43) target without a space.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	src := store.NewInMemoryContentSource("Post")
	space := int64(3)
	src.Put(store.ContentRecord{ID: 42, SpaceID: &space, Visibility: store.VisibilityPublic, CreatedBy: 7})
	src.Put(store.ContentRecord{ID: 43, Visibility: store.VisibilityPublic, CreatedBy: 7})

	posts := &countingSource{inner: src}
	reg := target.NewRegistry()
	reg.Register("Post", posts)

	spaces := store.NewInMemorySpaceStore()
	files := store.NewInMemoryFileStore()
	cache := visibility.NewMemoryCache(time.Minute, 2)

	svc := New(store.NewInMemoryCommentStore(), cache, zap.NewNop())
	svc.Spaces = spaces
	svc.Files = files
	svc.Policy = spaces

	return &fixture{svc: svc, reg: reg, posts: posts, spaces: spaces, files: files, cache: cache}
}

func (f *fixture) resolver() *target.Resolver {
	return target.NewResolver(f.reg)
}

func TestShow_LimitedWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, msg, "", true); err != nil {
			t.Fatalf("post %q: %v", msg, err)
		}
	}

	res, err := f.svc.Show(ctx, f.resolver(), "Post", 42, 7, true, 2)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if len(res.Comments) != 2 {
		t.Fatalf("expected 2 comments in limited window, got %d", len(res.Comments))
	}
	if res.Comments[0].Message != "two" || res.Comments[1].Message != "three" {
		t.Fatalf("expected most recent window oldest-first, got [%s %s]",
			res.Comments[0].Message, res.Comments[1].Message)
	}
	if !res.IsLimited || res.ShownCount != 2 {
		t.Fatalf("expected flags echoed back, got %+v", res)
	}

	res, err = f.svc.Show(ctx, f.resolver(), "Post", 42, 7, false, 0)
	if err != nil {
		t.Fatalf("show all: %v", err)
	}
	if len(res.Comments) != 3 {
		t.Fatalf("expected all 3 comments, got %d", len(res.Comments))
	}
}

func TestPost_CreatesAndIncrementsShownCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "", true)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(res.Comments) != 1 {
		t.Fatalf("expected the new comment in the result, got %d", len(res.Comments))
	}
	if res.Comments[0].Message != "hello" || res.Comments[0].AuthorID != 7 {
		t.Fatalf("unexpected comment %+v", res.Comments[0])
	}
	if res.ShownCount != 3 {
		t.Fatalf("expected shown count advanced past the window, got %d", res.ShownCount)
	}

	n, err := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if err != nil || n != 1 {
		t.Fatalf("expected count 1, got %d (%v)", n, err)
	}
}

func TestPost_EmptyMessageIsNoOpShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "", true); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	before := f.cache.State(ctx, "Post", 42, true)

	for _, msg := range []string{"", "   ", "\t\n", "\x00\x01"} {
		res, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, msg, "", true)
		if err != nil {
			t.Fatalf("empty post %q: %v", msg, err)
		}
		if len(res.Comments) != 1 {
			t.Fatalf("empty post %q: expected unchanged thread, got %d comments", msg, len(res.Comments))
		}
	}

	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 1 {
		t.Fatalf("expected no store writes, count %d", n)
	}
	after := f.cache.State(ctx, "Post", 42, true)
	if after.ShownCount != before.ShownCount {
		t.Fatalf("expected counter unchanged (%d), got %d", before.ShownCount, after.ShownCount)
	}
}

func TestPost_ResolvesTargetOnce(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Post(context.Background(), f.resolver(), "Post", 42, 7, "hello", "", true); err != nil {
		t.Fatalf("post: %v", err)
	}
	// Post re-shows the thread through the same resolver; the source
	// must be hit exactly once.
	if f.posts.loadCalls != 1 {
		t.Fatalf("expected 1 source load, got %d", f.posts.loadCalls)
	}
}

func TestPost_SpaceBookkeepingAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "guid-a, guid-b", true)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	c := res.Comments[0]
	if c.SpaceID == nil || *c.SpaceID != 3 {
		t.Fatalf("expected space 3 on comment, got %v", c.SpaceID)
	}
	if _, ok := f.spaces.LastVisit(3, 7); !ok {
		t.Fatal("expected last-visit touch for the poster")
	}
	if got := f.files.Attached(c.ID); len(got) != 2 {
		t.Fatalf("expected 2 attached files, got %v", got)
	}
}

type failingSpaces struct{}

func (failingSpaces) HasElevatedRole(context.Context, int64, int64) (bool, error) {
	return false, errors.New("spaces down")
}
func (failingSpaces) TouchLastVisit(context.Context, int64, int64) error {
	return errors.New("spaces down")
}

type failingFiles struct{}

func (failingFiles) AttachPending(context.Context, int64, string) error {
	return errors.New("files down")
}

func TestPost_BestEffortFailuresDoNotAbort(t *testing.T) {
	f := newFixture(t)
	f.svc.Spaces = failingSpaces{}
	f.svc.Files = failingFiles{}
	ctx := context.Background()

	res, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "guid-a", true)
	if err != nil {
		t.Fatalf("post must survive side-work failures: %v", err)
	}
	if len(res.Comments) != 1 {
		t.Fatalf("expected comment persisted, got %d", len(res.Comments))
	}
	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "original", "", true)
	id := res.Comments[0].ID

	// Non-author denied
	if _, err := f.svc.Edit(ctx, id, 8, "hacked"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for non-author, got %v", err)
	}
	// Anonymous denied
	if _, err := f.svc.Edit(ctx, id, 0, "hacked"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for anonymous, got %v", err)
	}
	// Empty message rejected
	if _, err := f.svc.Edit(ctx, id, 7, "   "); !errors.Is(err, store.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	// Author succeeds
	updated, err := f.svc.Edit(ctx, id, 7, "hi")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Message != "hi" {
		t.Fatalf("expected message 'hi', got %q", updated.Message)
	}
	// Missing comment
	if _, err := f.svc.Edit(ctx, 9999, 7, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_CrossTargetGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "", true)
	id := res.Comments[0].ID

	// Even the author cannot delete through a different target.
	if _, err := f.svc.Delete(ctx, f.resolver(), "Post", 43, id, 7, true); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for cross-target delete, got %v", err)
	}
	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 1 {
		t.Fatalf("expected comment untouched, count %d", n)
	}
}

func TestDelete_OwnershipAndElevatedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, _ := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "", true)
	id := res.Comments[0].ID

	// Stranger without role
	if _, err := f.svc.Delete(ctx, f.resolver(), "Post", 42, id, 8, true); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for stranger, got %v", err)
	}

	// Space moderator may delete
	f.spaces.GrantElevatedRole(3, 9)
	if _, err := f.svc.Delete(ctx, f.resolver(), "Post", 42, id, 9, true); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}

	// Author may delete their own
	res, _ = f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "again", "", true)
	id = res.Comments[0].ID
	out, err := f.svc.Delete(ctx, f.resolver(), "Post", 42, id, 7, true)
	if err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if len(out.Comments) != 0 {
		t.Fatalf("expected empty thread, got %d", len(out.Comments))
	}
	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 0 {
		t.Fatalf("expected count 0, got %d", n)
	}
}

func TestDelete_LeavesShownCountStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var lastID int64
	for _, msg := range []string{"a", "b", "c"} {
		res, _ := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, msg, "", true)
		lastID = res.Comments[len(res.Comments)-1].ID
	}
	before := f.cache.State(ctx, "Post", 42, true)

	out, err := f.svc.Delete(ctx, f.resolver(), "Post", 42, lastID, 7, true)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	// The hint is not reconciled downward; the store stays authoritative.
	if out.ShownCount != before.ShownCount {
		t.Fatalf("expected stale shown count %d, got %d", before.ShownCount, out.ShownCount)
	}
	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 2 {
		t.Fatalf("expected authoritative count 2, got %d", n)
	}
}

func TestListSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for _, msg := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		res, _ := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, msg, "", false)
		ids = append(ids, res.Comments[len(res.Comments)-1].ID)
	}

	got, err := f.svc.ListSince(ctx, f.resolver(), "Post", 42, 7, ids[0], 0)
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(got) != DefaultSincePageSize {
		t.Fatalf("expected default page of %d, got %d", DefaultSincePageSize, len(got))
	}
	if got[0].ID != ids[1] {
		t.Fatalf("expected first id %d, got %d", ids[1], got[0].ID)
	}
}

// downCache mimics an unreachable backend: reads yield defaults and
// increments yield the baseline fallback, exactly like RedisCache with
// a dead connection.
type downCache struct{}

func (downCache) State(_ context.Context, _ string, _ int64, limitedDefault bool) visibility.State {
	return visibility.State{IsLimited: limitedDefault, ShownCount: visibility.DefaultShownCount}
}

func (downCache) IncrementShown(context.Context, string, int64) int {
	return visibility.DefaultShownCount + 1
}

func TestCacheUnavailable_OperationsStillComplete(t *testing.T) {
	f := newFixture(t)
	f.svc.Cache = downCache{}
	ctx := context.Background()

	res, err := f.svc.Post(ctx, f.resolver(), "Post", 42, 7, "hello", "", true)
	if err != nil {
		t.Fatalf("post with cache down: %v", err)
	}
	if res.ShownCount != visibility.DefaultShownCount+1 {
		t.Fatalf("expected baseline fallback count, got %d", res.ShownCount)
	}

	if _, err := f.svc.Show(ctx, f.resolver(), "Post", 42, 7, true, res.ShownCount); err != nil {
		t.Fatalf("show with cache down: %v", err)
	}
	if _, err := f.svc.Delete(ctx, f.resolver(), "Post", 42, res.Comments[0].ID, 7, true); err != nil {
		t.Fatalf("delete with cache down: %v", err)
	}
}

func TestResolutionErrorsPropagateBeforeMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Post(ctx, f.resolver(), "", 42, 7, "x", "", true); !errors.Is(err, target.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := f.svc.Post(ctx, f.resolver(), "SystemUser", 1, 7, "x", "", true); !errors.Is(err, target.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for unknown type, got %v", err)
	}
	if _, err := f.svc.Post(ctx, f.resolver(), "Post", 999, 7, "x", "", true); !errors.Is(err, target.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, _ := f.svc.Count(ctx, f.resolver(), "Post", 42, 7)
	if n != 0 {
		t.Fatalf("expected no writes, count %d", n)
	}
}
