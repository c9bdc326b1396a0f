package outline

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/storage/memstore"
	"github.com/s/peripatos/internal/storage/storagetest"
)

const courseID = "logic101"

// recordingStore counts commits and can be told to fail writes.
type recordingStore struct {
	storage.Store
	commits []*storage.Batch
	fail    error
}

func (s *recordingStore) Commit(ctx context.Context, b *storage.Batch) error {
	s.commits = append(s.commits, b)
	if s.fail != nil {
		return s.fail
	}
	return s.Store.Commit(ctx, b)
}

func (s *recordingStore) Update(ctx context.Context, path string, fields storage.Fields) error {
	if s.fail != nil {
		return s.fail
	}
	return s.Store.Update(ctx, path, fields)
}

func (s *recordingStore) Delete(ctx context.Context, path string) error {
	if s.fail != nil {
		return s.fail
	}
	return s.Store.Delete(ctx, path)
}

func newStore() *recordingStore {
	return &recordingStore{Store: memstore.New(memstore.WithClock(storagetest.NewClock().Now))}
}

func open(t *testing.T, store storage.Store, opts ...Option) *Manager {
	t.Helper()
	m, err := Open(context.Background(), store, courseID, opts...)
	require.NoError(t, err)
	return m
}

type pageShape struct {
	ID, SectionID, Title string
	Order                int
}

func shapes(pages []models.Page) []pageShape {
	out := make([]pageShape, len(pages))
	for i, p := range pages {
		out[i] = pageShape{ID: p.ID, SectionID: p.SectionID, Title: p.Title, Order: p.Order}
	}
	return out
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func pageIDs(pages []models.Page) []string {
	return ids(pages, func(p models.Page) string { return p.ID })
}

func sectionIDs(sections []models.Section) []string {
	return ids(sections, func(s models.Section) string { return s.ID })
}

func orders[T any](items []T, order func(T) int) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = order(it)
	}
	return out
}

func pageOrders(pages []models.Page) []int {
	return orders(pages, func(p models.Page) int { return p.Order })
}

func contiguous(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// seed builds sections with the given page counts.
func seed(t *testing.T, m *Manager, pageCounts ...int) {
	t.Helper()
	ctx := context.Background()
	for _, n := range pageCounts {
		s, _, err := m.AddSection(ctx)
		require.NoError(t, err)
		for i := 1; i < n; i++ {
			_, err := m.AddPage(ctx, s.ID)
			require.NoError(t, err)
		}
	}
}

func assertInvariants(t *testing.T, m *Manager) {
	t.Helper()
	sections := m.Sections()
	assert.Equal(t, contiguous(len(sections)), orders(sections, func(s models.Section) int { return s.Order }))
	known := map[string]bool{}
	for _, s := range sections {
		known[s.ID] = true
		pages := m.PagesIn(s.ID)
		assert.Equal(t, contiguous(len(pages)), pageOrders(pages), "section %s", s.ID)
	}
	for _, p := range m.Pages() {
		assert.True(t, known[p.SectionID], "page %s references unknown section", p.ID)
	}
}

// assertPersisted reloads the outline and compares it with m.
func assertPersisted(t *testing.T, store storage.Store, m *Manager) {
	t.Helper()
	fresh := open(t, store)
	assert.Equal(t, m.Sections(), fresh.Sections())
	assert.Equal(t, shapes(m.Pages()), shapes(fresh.Pages()))
}

func TestAddSection(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)

	for i := 0; i < 3; i++ {
		s, p, err := m.AddSection(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, s.Order)
		assert.Equal(t, DefaultSectionTitle, s.Title)
		assert.Equal(t, DefaultPageTitle, p.Title)
		assert.Equal(t, 0, p.Order)
		assert.Equal(t, s.ID, p.SectionID)

		selected, ok := m.Selected()
		require.True(t, ok)
		assert.Equal(t, p.ID, selected.ID)

		doc, err := store.Get(ctx, storage.Join("courses", courseID, "sections", s.ID, "pages", p.ID))
		require.NoError(t, err)
		assert.Equal(t, s.ID, doc.Fields["sectionId"])
	}
	assertInvariants(t, m)
	assertPersisted(t, store, m)
}

func TestAddPage(t *testing.T) {
	ctx := context.Background()
	m := open(t, newStore())
	seed(t, m, 1)
	s := m.Sections()[0]

	p, err := m.AddPage(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, NewPageTitle, p.Title)
	assert.Equal(t, 1, p.Order)
	doc, err := p.Content.Document()
	require.NoError(t, err)
	assert.Empty(t, doc.Blocks)
	assert.Equal(t, models.EditorVersion, doc.Version)

	_, err = m.AddPage(ctx, "missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestReorder_SectionSequencesStayContiguous(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	rnd := rand.New(rand.NewSource(7))

	for step := 0; step < 40; step++ {
		n := len(m.Sections())
		if n < 2 || rnd.Intn(4) == 0 {
			_, _, err := m.AddSection(ctx)
			require.NoError(t, err)
		} else {
			require.NoError(t, m.Reorder(ctx, DragEvent{
				Kind:             KindSection,
				SourceIndex:      rnd.Intn(n),
				DestinationIndex: rnd.Intn(n),
			}))
		}
		assertInvariants(t, m)
	}
	assertPersisted(t, store, m)
}

func TestReorder_PageSequencesStayContiguous(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 2, 3, 1)
	sections := m.Sections()
	rnd := rand.New(rand.NewSource(11))

	for step := 0; step < 60; step++ {
		src := sections[rnd.Intn(len(sections))].ID
		if rnd.Intn(5) == 0 {
			_, err := m.AddPage(ctx, src)
			require.NoError(t, err)
			continue
		}
		from := m.PagesIn(src)
		if len(from) == 0 {
			continue
		}
		dst := sections[rnd.Intn(len(sections))].ID
		room := len(m.PagesIn(dst))
		if dst == src {
			room--
		}
		require.NoError(t, m.Reorder(ctx, DragEvent{
			Kind:                KindPage,
			ItemID:              from[rnd.Intn(len(from))].ID,
			SourceParentID:      src,
			DestinationParentID: dst,
			DestinationIndex:    rnd.Intn(room + 1),
		}))
		assertInvariants(t, m)
	}
	assertPersisted(t, store, m)
}

func TestReorder_CrossParentMove(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 3, 2)
	a, b := m.Sections()[0], m.Sections()[1]
	aPages, bPages := m.PagesIn(a.ID), m.PagesIn(b.ID)
	moved := aPages[1]

	require.NoError(t, m.Reorder(ctx, DragEvent{
		Kind:                KindPage,
		ItemID:              moved.ID,
		SourceIndex:         1,
		DestinationIndex:    0,
		SourceParentID:      a.ID,
		DestinationParentID: b.ID,
	}))

	gotA := m.PagesIn(a.ID)
	assert.Equal(t, []string{aPages[0].ID, aPages[2].ID}, pageIDs(gotA))
	assert.Equal(t, []int{0, 1}, pageOrders(gotA))

	gotB := m.PagesIn(b.ID)
	assert.Equal(t, []string{moved.ID, bPages[0].ID, bPages[1].ID}, pageIDs(gotB))
	assert.Equal(t, []int{0, 1, 2}, pageOrders(gotB))
	assert.Equal(t, b.ID, gotB[0].SectionID)

	require.Len(t, store.commits, 1)
	var kinds []string
	for _, op := range store.commits[0].Ops() {
		kinds = append(kinds, op.Kind.String()+" "+op.Path)
	}
	prefix := "courses/" + courseID + "/sections/"
	assert.ElementsMatch(t, []string{
		"update " + prefix + a.ID + "/pages/" + aPages[2].ID,
		"delete " + prefix + a.ID + "/pages/" + moved.ID,
		"set " + prefix + b.ID + "/pages/" + moved.ID,
		"update " + prefix + b.ID + "/pages/" + bPages[0].ID,
		"update " + prefix + b.ID + "/pages/" + bPages[1].ID,
	}, kinds)

	_, err := store.Get(ctx, prefix+a.ID+"/pages/"+moved.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assertPersisted(t, store, m)
}

func TestReorder_WithinSectionUsesCurrentOrders(t *testing.T) {
	// The page goes before the first sibling whose order is at least the
	// destination index; the dragged page's own order no longer counts.
	tests := []struct {
		name string
		from int
		to   int
		want []int
	}{
		{"down onto next is unchanged", 0, 1, []int{0, 1, 2}},
		{"down by two", 0, 2, []int{1, 0, 2}},
		{"past the end appends", 0, 3, []int{1, 2, 0}},
		{"up to the top", 2, 0, []int{2, 0, 1}},
		{"up by one", 2, 1, []int{0, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := open(t, newStore())
			seed(t, m, 3)
			s := m.Sections()[0]
			before := pageIDs(m.PagesIn(s.ID))

			require.NoError(t, m.Reorder(ctx, DragEvent{Kind: KindPage, ItemID: before[tt.from], DestinationIndex: tt.to}))
			want := make([]string, len(tt.want))
			for i, j := range tt.want {
				want[i] = before[j]
			}
			assert.Equal(t, want, pageIDs(m.PagesIn(s.ID)))
			assertInvariants(t, m)
		})
	}
}

func TestReorder_SameIndexIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 3, 1)
	s := m.Sections()[0]
	pages := m.PagesIn(s.ID)

	require.NoError(t, m.Reorder(ctx, DragEvent{Kind: KindSection, SourceIndex: 1, DestinationIndex: 1}))
	require.NoError(t, m.Reorder(ctx, DragEvent{
		Kind: KindPage, ItemID: pages[1].ID, SourceIndex: 1, DestinationIndex: 1,
		SourceParentID: s.ID, DestinationParentID: s.ID,
	}))
	require.NoError(t, m.Reorder(ctx, DragEvent{Kind: KindSection, SourceIndex: 0, DestinationIndex: 1, DroppedOutside: true}))

	assert.Empty(t, store.commits)
	assert.Equal(t, pageIDs(pages), pageIDs(m.PagesIn(s.ID)))
	assert.Equal(t, []int{0, 1, 2}, pageOrders(m.PagesIn(s.ID)))
}

func TestReorder_Errors(t *testing.T) {
	ctx := context.Background()
	m := open(t, newStore())
	seed(t, m, 2)
	s := m.Sections()[0]

	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: KindSection, SourceIndex: 0, DestinationIndex: 3}), ErrInvalidIndex)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: KindSection, ItemID: "nope"}), ErrSectionNotFound)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: KindPage, ItemID: "nope"}), ErrPageNotFound)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: KindPage, SourceParentID: s.ID, SourceIndex: 5}), ErrInvalidIndex)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{
		Kind: KindPage, SourceParentID: s.ID, SourceIndex: 0, DestinationParentID: "gone",
	}), ErrSectionNotFound)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: "chapter"}), ErrInvalidKind)
	assert.ErrorIs(t, m.Reorder(ctx, DragEvent{Kind: KindPage, SourceParentID: s.ID, DestinationIndex: -1}), ErrInvalidIndex)
}

func TestReorder_FailureKeepsNewArrangement(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 1, 1)
	before := sectionIDs(m.Sections())

	store.fail = errors.New("unavailable")
	err := m.Reorder(ctx, DragEvent{Kind: KindSection, SourceIndex: 0, DestinationIndex: 1})
	require.Error(t, err)
	assert.Equal(t, []string{before[1], before[0]}, sectionIDs(m.Sections()))

	store.fail = nil
	assert.Equal(t, before, sectionIDs(open(t, store).Sections()))
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 1)
	s := m.Sections()[0]
	p := m.PagesIn(s.ID)[0]

	require.NoError(t, m.RenameSection(ctx, s.ID, "Syllogisms"))
	require.NoError(t, m.RenamePage(ctx, p.ID, "Barbara"))
	assertPersisted(t, store, m)
	assert.Equal(t, "Syllogisms", m.Sections()[0].Title)

	store.fail = errors.New("unavailable")
	require.Error(t, m.RenameSection(ctx, s.ID, "Lost"))
	require.Error(t, m.RenamePage(ctx, p.ID, "Lost"))
	assert.Equal(t, "Syllogisms", m.Sections()[0].Title)
	got, _ := m.Page(p.ID)
	assert.Equal(t, "Barbara", got.Title)

	assert.ErrorIs(t, m.RenameSection(ctx, "nope", "x"), ErrSectionNotFound)
	assert.ErrorIs(t, m.RenamePage(ctx, "nope", "x"), ErrPageNotFound)
}

func TestUpdatePageContent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 1)
	p := m.Pages()[0]

	body := []byte(`{"time":5,"blocks":[{"type":"paragraph","data":{"text":"All men are mortal"}}],"version":"2.19.0"}`)
	require.NoError(t, m.UpdatePageContent(ctx, p.ID, models.NewContent(body)))

	fresh := open(t, store)
	got, ok := fresh.Page(p.ID)
	require.True(t, ok)
	assert.True(t, got.Content.Supported())
	assert.JSONEq(t, string(body), string(got.Content.Body))

	assert.ErrorIs(t, m.UpdatePageContent(ctx, "nope", models.Content{}), ErrPageNotFound)
}

func TestOpen_ReadsLegacyContent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	sec := storage.Join("courses", courseID, "sections", "s1")
	require.NoError(t, store.Set(ctx, sec, storage.Fields{"title": "Old", "order": 0}))
	require.NoError(t, store.Set(ctx, storage.Join(sec, "pages", "p1"), storage.Fields{
		"title": "Legacy", "order": 0, "sectionId": "s1",
		"content": map[string]any{"time": 1, "blocks": []any{}, "version": "2.19.0"},
	}))

	m := open(t, store)
	p, ok := m.Page("p1")
	require.True(t, ok)
	assert.Equal(t, models.ContentFormatEditorJS, p.Content.Format)
	assert.Equal(t, models.ContentSchemaVersion, p.Content.SchemaVersion)
}

func TestDeleteSection(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 1, 2, 1)
	victim := m.Sections()[1]
	victimPages := m.PagesIn(victim.ID)
	require.NoError(t, m.SelectPage(victimPages[1].ID))

	require.NoError(t, m.DeleteSection(ctx, victim.ID))

	_, ok := m.Selected()
	assert.False(t, ok)
	for _, p := range m.Pages() {
		assert.NotEqual(t, victim.ID, p.SectionID)
	}
	assertInvariants(t, m)
	assertPersisted(t, store, m)

	for _, p := range victimPages {
		_, err := store.Get(ctx, storage.Join("courses", courseID, "sections", victim.ID, "pages", p.ID))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	assert.ErrorIs(t, m.DeleteSection(ctx, victim.ID), ErrSectionNotFound)
}

func TestDeletePage_LeavesGap(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	m := open(t, store)
	seed(t, m, 3)
	s := m.Sections()[0]
	pages := m.PagesIn(s.ID)

	require.NoError(t, m.DeletePage(ctx, pages[1].ID))
	_, ok := m.Selected()
	assert.True(t, ok, "selection is kept when another page is deleted")
	assert.Equal(t, []int{0, 2}, pageOrders(m.PagesIn(s.ID)))
	assertPersisted(t, store, m)

	require.NoError(t, m.SelectPage(pages[2].ID))
	require.NoError(t, m.DeletePage(ctx, pages[2].ID))
	_, ok = m.Selected()
	assert.False(t, ok)

	assert.ErrorIs(t, m.DeletePage(ctx, pages[2].ID), ErrPageNotFound)
}

func TestConcurrentManagers_LastWriteWins(t *testing.T) {
	ctx := context.Background()

	t.Run("sections and pages", func(t *testing.T) {
		store := newStore()
		seed(t, open(t, store), 3, 1)
		one, two := open(t, store), open(t, store)
		s0, s1 := one.Sections()[0], one.Sections()[1]
		pages := pageIDs(two.PagesIn(s0.ID))

		require.NoError(t, one.Reorder(ctx, DragEvent{Kind: KindSection, SourceIndex: 1, DestinationIndex: 0}))
		require.NoError(t, two.Reorder(ctx, DragEvent{Kind: KindPage, ItemID: pages[2], DestinationIndex: 0}))

		// two never saw the section move.
		assert.Equal(t, []string{s0.ID, s1.ID}, sectionIDs(two.Sections()))

		fresh := open(t, store)
		assert.Equal(t, []string{s1.ID, s0.ID}, sectionIDs(fresh.Sections()))
		assert.Equal(t, []string{pages[2], pages[0], pages[1]}, pageIDs(fresh.PagesIn(s0.ID)))
	})

	t.Run("same pages", func(t *testing.T) {
		store := newStore()
		seed(t, open(t, store), 3)
		one, two := open(t, store), open(t, store)
		s := one.Sections()[0]
		p := pageIDs(one.PagesIn(s.ID))

		require.NoError(t, one.Reorder(ctx, DragEvent{Kind: KindPage, ItemID: p[0], DestinationIndex: 2}))
		require.NoError(t, two.Reorder(ctx, DragEvent{Kind: KindPage, ItemID: p[2], DestinationIndex: 0}))

		fresh := open(t, store)
		got := fresh.PagesIn(s.ID)
		assert.Equal(t, []string{p[2], p[0], p[1]}, pageIDs(got))
		assert.Equal(t, []int{0, 1, 2}, pageOrders(got))
		assert.NotEqual(t, pageIDs(one.PagesIn(s.ID)), pageIDs(got))
	})
}
