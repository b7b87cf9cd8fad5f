package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/oahu/internal/backend"
	"github.com/existflow/oahu/internal/errs"
	"github.com/existflow/oahu/internal/index"
	"github.com/existflow/oahu/internal/logger"
	"github.com/existflow/oahu/internal/model"
	"github.com/existflow/oahu/internal/remote"
)

type fakeRemote struct {
	mu    sync.Mutex
	calls int32
	data  map[string]string
	delay time.Duration
}

func (f *fakeRemote) Get(_ context.Context, path string, _ remote.Params) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.data[path]
	if !ok {
		return nil, errs.NotFound("get", fmt.Errorf("%s", path))
	}
	return json.RawMessage(body), nil
}

func newRepo(t *testing.T, r Remote) (*Repo, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	return NewRepo(mem, r, logger.Nop()), mem
}

func ts(s string) model.Timestamp {
	t, err := model.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	projects := For[*model.Project](repo)

	p := &model.Project{Base: model.Base{ID: "p1", Slug: "foo", Revision: "stale", UpdatedAt: ts("2020-01-01")}}
	require.NoError(t, projects.Save(ctx, p))
	assert.NotEqual(t, "stale", p.Revision)
	assert.Len(t, p.Revision, 40)
	assert.Equal(t, "Project", p.Type)

	got, err := projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Revision, got.Revision)
	assert.Equal(t, "foo", got.Slug)
}

func TestSaveRequiresID(t *testing.T) {
	repo, _ := newRepo(t, nil)
	err := For[*model.App](repo).Save(context.Background(), &model.App{})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestFindFetchesOnMissOnce(t *testing.T) {
	ctx := context.Background()
	rem := &fakeRemote{
		data:  map[string]string{"apps/a1": `{"id":"a1","_type":"App","project_id":"p1","updated_at":"2020-01-01"}`},
		delay: 50 * time.Millisecond,
	}
	repo, _ := newRepo(t, rem)
	apps := For[*model.App](repo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := apps.Find(ctx, "a1")
			assert.NoError(t, err)
			assert.Equal(t, "p1", a.ProjectID)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&rem.calls))

	// cached now
	_, err := apps.Find(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&rem.calls))

	byProject, err := apps.FindAllBy(ctx, "project_id", "p1")
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "a1", byProject[0].ID)
}

func TestFindNotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, &fakeRemote{data: map[string]string{}})
	_, err := For[*model.Video](repo).Find(ctx, "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	offline, _ := newRepo(t, nil)
	_, err = For[*model.Video](offline).Find(ctx, "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFindManyAbortsOnMissing(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	images := For[*model.Image](repo)
	require.NoError(t, images.Save(ctx, &model.Image{Resource: model.Resource{Base: model.Base{ID: "i1"}}}))

	got, err := images.FindMany(ctx, []string{"i1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = images.FindMany(ctx, []string{"i1", "i2"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestIndexFollowsAttributeChanges(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	projects := For[*model.Project](repo)

	p := &model.Project{Base: model.Base{ID: "p1", Slug: "foo"}}
	require.NoError(t, projects.Save(ctx, p))

	got, err := projects.FindBy(ctx, "slug", "foo")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	p.Slug = "bar"
	require.NoError(t, projects.Save(ctx, p))

	_, err = projects.FindBy(ctx, "slug", "foo")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	got, err = projects.FindBy(ctx, "slug", "bar")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	tags, err := repo.Index(model.KindProject).Tags(ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{index.AllTag, "slug:bar"}, tags)
}

func TestAllTracksLiveRecords(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	videos := For[*model.Video](repo)

	for _, id := range []string{"v1", "v2", "v3"} {
		require.NoError(t, videos.Save(ctx, &model.Video{Resource: model.Resource{Base: model.Base{ID: id}}}))
	}
	v2, err := videos.Get(ctx, "v2")
	require.NoError(t, err)
	require.NoError(t, videos.Destroy(ctx, v2))

	all, err := videos.All(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, v := range all {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"v1", "v3"}, ids)

	_, err = videos.Get(ctx, "v2")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// destroying twice is harmless
	require.NoError(t, videos.Destroy(ctx, v2))
}

func TestAllSkipsStaleIndexEntries(t *testing.T) {
	ctx := context.Background()
	repo, mem := newRepo(t, nil)
	images := For[*model.Image](repo)

	require.NoError(t, images.Save(ctx, &model.Image{Resource: model.Resource{Base: model.Base{ID: "i1"}}}))
	require.NoError(t, images.Save(ctx, &model.Image{Resource: model.Resource{Base: model.Base{ID: "i2"}}}))
	require.NoError(t, mem.Delete(ctx, string(model.KindImage), "i1"))

	all, err := images.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "i2", all[0].ID)

	ids, err := repo.Index(model.KindImage).IDs(ctx, index.AllTag)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2"}, ids)
}

func TestParentRevisionFollowsChildren(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	images := For[*model.Image](repo)
	lists := For[*model.ImageList](repo)

	img := &model.Image{Resource: model.Resource{Base: model.Base{ID: "i1", UpdatedAt: ts("2020-01-01")}}}
	require.NoError(t, images.Save(ctx, img))

	l := &model.ImageList{Resource: model.Resource{Base: model.Base{ID: "l1"}}, ImageIDs: []string{"i1", "missing"}}
	require.NoError(t, lists.Save(ctx, l))
	first := l.Revision

	require.NoError(t, lists.Save(ctx, l))
	assert.Equal(t, first, l.Revision)

	img.UpdatedAt = ts("2020-02-01")
	require.NoError(t, images.Save(ctx, img))
	require.NoError(t, lists.Save(ctx, l))
	assert.NotEqual(t, first, l.Revision)
}

func TestProjectsByYear(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	projects := NewProjects(repo)

	for id, date := range map[string]string{"p1": "2019-05-01", "p2": "2021-01-01", "p3": "2019-12-31", "p4": ""} {
		require.NoError(t, projects.Save(ctx, &model.Project{Base: model.Base{ID: id}, ReleaseDate: ts(date)}))
	}

	years, groups, err := projects.ByYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2019}, years)
	assert.Len(t, groups[2019], 2)
	assert.Len(t, groups[2021], 1)
}

// gateRemote blocks every Get until release is closed
type gateRemote struct {
	body    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateRemote) Get(ctx context.Context, _ string, _ remote.Params) (json.RawMessage, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return json.RawMessage(g.body), nil
}

func TestFindKeepsRecordSavedDuringFetch(t *testing.T) {
	ctx := context.Background()
	rem := &gateRemote{
		body:    `{"id":"p1","_type":"Project","updated_at":"2020-01-01"}`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo, _ := newRepo(t, rem)
	projects := For[*model.Project](repo)

	type found struct {
		p   *model.Project
		err error
	}
	done := make(chan found, 1)
	go func() {
		p, err := projects.Find(ctx, "p1")
		done <- found{p, err}
	}()
	<-rem.started

	synced := &model.Project{Base: model.Base{ID: "p1", UpdatedAt: ts("2020-01-01")}, AppIDs: []string{"a1"}}
	require.NoError(t, projects.Save(ctx, synced))
	close(rem.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []string{"a1"}, res.p.AppIDs)

	stored, err := projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, synced.Revision, stored.Revision)
	assert.Equal(t, []string{"a1"}, stored.AppIDs)
	assert.Equal(t, 0, repo.locks.size())
}

func TestReposSharingBackendKeepIndexConsistent(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	a := For[*model.Project](NewRepo(mem, nil, logger.Nop()))
	b := For[*model.Project](NewRepo(mem, nil, logger.Nop()))

	require.NoError(t, a.Save(ctx, &model.Project{Base: model.Base{ID: "p1"}}))
	all, err := b.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, a.Save(ctx, &model.Project{Base: model.Base{ID: "p2"}}))
	require.NoError(t, b.Save(ctx, &model.Project{Base: model.Base{ID: "p3"}}))

	all, err = For[*model.Project](NewRepo(mem, nil, logger.Nop())).All(ctx)
	require.NoError(t, err)
	var ids []string
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
}

func TestProjectListRevisionFollowsProjects(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	projects := NewProjects(repo)
	lists := NewProjectLists(repo)

	p1 := &model.Project{Base: model.Base{ID: "p1", UpdatedAt: ts("2020-01-01")}}
	require.NoError(t, projects.Save(ctx, p1))
	require.NoError(t, projects.Save(ctx, &model.Project{Base: model.Base{ID: "p2"}}))

	featured := &model.ProjectList{Base: model.Base{ID: "pl1", Name: "featured"}, ProjectIDs: []string{"p1", "p2", "gone"}}
	require.NoError(t, lists.Save(ctx, featured))
	first := featured.Revision

	got, err := lists.ByName(ctx, "featured")
	require.NoError(t, err)
	assert.Equal(t, first, got.Revision)

	members, err := lists.Projects(ctx, got)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "p1", members[0].ID)

	p1.UpdatedAt = ts("2020-06-01")
	require.NoError(t, projects.Save(ctx, p1))
	require.NoError(t, lists.Save(ctx, featured))
	assert.NotEqual(t, first, featured.Revision)
}

func TestProjectsBySlugAndDefaults(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, nil)
	projects := NewProjects(repo)

	img := &model.Image{Resource: model.Resource{Base: model.Base{ID: "i1"}, ProjectID: "p1"}}
	require.NoError(t, For[*model.Image](repo).Save(ctx, img))
	p := &model.Project{Base: model.Base{ID: "p1", Slug: "film"}, DefaultImageID: "i1", DefaultVideoID: "v9"}
	require.NoError(t, projects.Save(ctx, p))

	got, err := projects.BySlug(ctx, "film")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	def, err := projects.DefaultImage(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "i1", def.ID)

	_, err = projects.DefaultVideo(ctx, got)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = projects.DefaultImage(ctx, &model.Project{Base: model.Base{ID: "p2"}})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = projects.BySlug(ctx, "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counts := make([]int, 3)
	for i := 0; i < 100; i++ {
		slot := i % 3
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(fmt.Sprintf("k%d", slot))
			defer unlock()
			counts[slot]++
		}()
	}
	wg.Wait()
	assert.Equal(t, []int{34, 33, 33}, counts)
	assert.Equal(t, 0, k.size())
}
