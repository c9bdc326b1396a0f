// Package outline maintains the ordered sections and pages of one course
// and mirrors every structural edit into the document store.
//
// A Manager is the in-memory source of truth between loads. Operations are
// serialised per Manager; two Managers over the same course are not
// coordinated and the last committed batch wins.
package outline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
)

const (
	DefaultSectionTitle = "Default Section"
	DefaultPageTitle    = "Default Page"
	NewPageTitle        = "New Page"
)

var (
	ErrSectionNotFound = errors.New("outline: section not found")
	ErrPageNotFound    = errors.New("outline: page not found")
	ErrVersionNotFound = errors.New("outline: version not found")
	ErrInvalidIndex    = errors.New("outline: index out of range")
	ErrInvalidKind     = errors.New("outline: unknown item kind")
)

type Manager struct {
	mu       sync.Mutex
	store    storage.Store
	courseID string
	log      *logger.Logger
	editor   *models.User
	now      func() time.Time

	sections []models.Section
	// pages is flat; membership is by SectionID and the slice order within
	// one section is the display order.
	pages           []models.Page
	selected        string
	viewingVersions bool
}

type Option func(*Manager)

func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithEditor records who is editing; it is stamped on saved versions.
func WithEditor(u *models.User) Option {
	return func(m *Manager) { m.editor = u }
}

// WithClock sets the clock used for new page content timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Open loads the outline of courseID from store.
func Open(ctx context.Context, store storage.Store, courseID string, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:    store,
		courseID: courseID,
		log:      logger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "outline", "course_id", courseID)

	if err := m.load(ctx); err != nil {
		m.log.Error("failed to load outline", "error", err)
		return nil, err
	}
	return m, nil
}

func (m *Manager) load(ctx context.Context) error {
	docs, err := m.store.List(ctx, m.sectionsPath(), storage.Query{OrderBy: "order"})
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}

	sections := make([]models.Section, len(docs))
	for i, doc := range docs {
		if err := storage.DecodeDocument(doc, &sections[i]); err != nil {
			return fmt.Errorf("decode section %s: %w", doc.Path, err)
		}
	}

	perSection := make([][]models.Page, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	for i := range sections {
		i := i
		g.Go(func() error {
			docs, err := m.store.List(gctx, m.pagesPath(sections[i].ID), storage.Query{OrderBy: "order"})
			if err != nil {
				return fmt.Errorf("list pages of %s: %w", sections[i].ID, err)
			}
			pages := make([]models.Page, len(docs))
			for j, doc := range docs {
				if err := storage.DecodeDocument(doc, &pages[j]); err != nil {
					return fmt.Errorf("decode page %s: %w", doc.Path, err)
				}
				if pages[j].SectionID == "" {
					pages[j].SectionID = sections[i].ID
				}
			}
			perSection[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.sections = sections
	m.pages = m.pages[:0]
	for _, pages := range perSection {
		m.pages = append(m.pages, pages...)
	}
	return nil
}

func (m *Manager) CourseID() string { return m.courseID }

func (m *Manager) sectionsPath() string {
	return storage.Join("courses", m.courseID, "sections")
}

func (m *Manager) sectionPath(sectionID string) string {
	return storage.Join("courses", m.courseID, "sections", sectionID)
}

func (m *Manager) pagesPath(sectionID string) string {
	return storage.Join("courses", m.courseID, "sections", sectionID, "pages")
}

func (m *Manager) pagePath(sectionID, pageID string) string {
	return storage.Join("courses", m.courseID, "sections", sectionID, "pages", pageID)
}

func (m *Manager) versionsPath() string {
	return storage.Join("courses", m.courseID, "versions")
}

func (m *Manager) sectionIndex(id string) int {
	for i := range m.sections {
		if m.sections[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) pageIndex(id string) int {
	for i := range m.pages {
		if m.pages[i].ID == id {
			return i
		}
	}
	return -1
}

// pageIndexes returns the positions in m.pages of the pages of sectionID.
func (m *Manager) pageIndexes(sectionID string) []int {
	var out []int
	for i := range m.pages {
		if m.pages[i].SectionID == sectionID {
			out = append(out, i)
		}
	}
	return out
}

func (m *Manager) fail(op string, err error, kv ...interface{}) error {
	m.log.Error("outline operation failed", append([]interface{}{"op", op, "error", err}, kv...)...)
	return err
}

// AddSection appends a section and gives it one default page, which
// becomes the selected page.
func (m *Manager) AddSection(ctx context.Context) (models.Section, models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	section := models.Section{Title: DefaultSectionTitle, Order: len(m.sections)}
	id, err := m.store.Create(ctx, m.sectionsPath(), storage.Fields{
		"title": section.Title,
		"order": section.Order,
	})
	if err != nil {
		return models.Section{}, models.Page{}, m.fail("add_section", fmt.Errorf("create section: %w", err))
	}
	section.ID = id
	m.sections = append(m.sections, section)

	page, err := m.createPage(ctx, id, DefaultPageTitle)
	if err != nil {
		return section, models.Page{}, m.fail("add_section", err, "section_id", id)
	}
	m.log.Info("section added", "section_id", id, "page_id", page.ID)
	return section, page, nil
}

// AddPage appends a page to sectionID and selects it.
func (m *Manager) AddPage(ctx context.Context, sectionID string) (models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sectionIndex(sectionID) < 0 {
		return models.Page{}, ErrSectionNotFound
	}
	page, err := m.createPage(ctx, sectionID, NewPageTitle)
	if err != nil {
		return models.Page{}, m.fail("add_page", err, "section_id", sectionID)
	}
	return page, nil
}

func (m *Manager) createPage(ctx context.Context, sectionID, title string) (models.Page, error) {
	page := models.Page{
		SectionID: sectionID,
		Title:     title,
		Order:     len(m.pageIndexes(sectionID)),
		Content:   models.EmptyContent(m.now()),
	}
	fields, err := storage.EncodeDocument(page)
	if err != nil {
		return models.Page{}, err
	}
	id, err := m.store.Create(ctx, m.pagesPath(sectionID), fields)
	if err != nil {
		return models.Page{}, fmt.Errorf("create page: %w", err)
	}
	page.ID = id
	m.pages = append(m.pages, page)
	m.selected = id
	return page, nil
}

// RenameSection changes a section title. Memory is updated only once the
// store accepted the write.
func (m *Manager) RenameSection(ctx context.Context, sectionID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.sectionIndex(sectionID)
	if i < 0 {
		return ErrSectionNotFound
	}
	if err := m.store.Update(ctx, m.sectionPath(sectionID), storage.Fields{"title": title}); err != nil {
		return m.fail("rename_section", fmt.Errorf("update section: %w", err), "section_id", sectionID)
	}
	m.sections[i].Title = title
	return nil
}

func (m *Manager) RenamePage(ctx context.Context, pageID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.pageIndex(pageID)
	if i < 0 {
		return ErrPageNotFound
	}
	p := m.pages[i]
	if err := m.store.Update(ctx, m.pagePath(p.SectionID, p.ID), storage.Fields{"title": title}); err != nil {
		return m.fail("rename_page", fmt.Errorf("update page: %w", err), "page_id", pageID)
	}
	m.pages[i].Title = title
	return nil
}

// UpdatePageContent replaces a page body. It is called for every editor
// change, without debouncing.
func (m *Manager) UpdatePageContent(ctx context.Context, pageID string, content models.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.pageIndex(pageID)
	if i < 0 {
		return ErrPageNotFound
	}
	p := m.pages[i]
	if err := m.store.Update(ctx, m.pagePath(p.SectionID, p.ID), storage.Fields{"content": content}); err != nil {
		return m.fail("update_content", fmt.Errorf("update page content: %w", err), "page_id", pageID)
	}
	m.pages[i].Content = content
	return nil
}

// DeleteSection removes a section with all of its pages in one batch and
// closes the gap it leaves in the section order.
func (m *Manager) DeleteSection(ctx context.Context, sectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.sectionIndex(sectionID)
	if i < 0 {
		return ErrSectionNotFound
	}

	batch := storage.NewBatch()
	for _, pi := range m.pageIndexes(sectionID) {
		batch.Delete(m.pagePath(sectionID, m.pages[pi].ID))
	}
	batch.Delete(m.sectionPath(sectionID))

	remaining := make([]models.Section, 0, len(m.sections)-1)
	remaining = append(remaining, m.sections[:i]...)
	remaining = append(remaining, m.sections[i+1:]...)
	for j := range remaining {
		if remaining[j].Order != j {
			remaining[j].Order = j
			batch.Update(m.sectionPath(remaining[j].ID), storage.Fields{"order": j})
		}
	}

	if err := m.store.Commit(ctx, batch); err != nil {
		return m.fail("delete_section", fmt.Errorf("commit: %w", err), "section_id", sectionID)
	}

	m.sections = remaining
	kept := m.pages[:0]
	for _, p := range m.pages {
		if p.SectionID == sectionID {
			if p.ID == m.selected {
				m.selected = ""
			}
			continue
		}
		kept = append(kept, p)
	}
	m.pages = kept
	m.log.Info("section deleted", "section_id", sectionID)
	return nil
}

// DeletePage removes one page. Sibling orders are left as they are, so the
// section may have a gap until the next reorder.
func (m *Manager) DeletePage(ctx context.Context, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.pageIndex(pageID)
	if i < 0 {
		return ErrPageNotFound
	}
	p := m.pages[i]
	if err := m.store.Delete(ctx, m.pagePath(p.SectionID, p.ID)); err != nil {
		return m.fail("delete_page", fmt.Errorf("delete page: %w", err), "page_id", pageID)
	}
	m.pages = append(m.pages[:i], m.pages[i+1:]...)
	if m.selected == pageID {
		m.selected = ""
	}
	return nil
}

// Sections returns the sections in display order.
func (m *Manager) Sections() []models.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Section, len(m.sections))
	copy(out, m.sections)
	return out
}

// Pages returns every page, grouped by section in section order.
func (m *Manager) Pages() []models.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Page, 0, len(m.pages))
	for _, s := range m.sections {
		for _, i := range m.pageIndexes(s.ID) {
			out = append(out, m.pages[i])
		}
	}
	return out
}

// PagesIn returns the pages of one section in display order.
func (m *Manager) PagesIn(sectionID string) []models.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.pageIndexes(sectionID)
	out := make([]models.Page, len(idx))
	for j, i := range idx {
		out[j] = m.pages[i]
	}
	return out
}

func (m *Manager) Page(pageID string) (models.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.pageIndex(pageID)
	if i < 0 {
		return models.Page{}, false
	}
	return m.pages[i], true
}

// Selected returns the page being edited, if any.
func (m *Manager) Selected() (models.Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == "" {
		return models.Page{}, false
	}
	i := m.pageIndex(m.selected)
	if i < 0 {
		return models.Page{}, false
	}
	return m.pages[i], true
}

func (m *Manager) SelectPage(pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pageIndex(pageID) < 0 {
		return ErrPageNotFound
	}
	m.selected = pageID
	return nil
}

func (m *Manager) ViewingVersions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewingVersions
}

func (m *Manager) SetViewingVersions(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewingVersions = v
}

// SectionTree is a section with its pages, as served to the editor.
type SectionTree struct {
	models.Section
	Pages []models.Page `json:"pages"`
}

// Tree returns the outline as nested sections.
func (m *Manager) Tree() []SectionTree {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SectionTree, len(m.sections))
	for i, s := range m.sections {
		idx := m.pageIndexes(s.ID)
		pages := make([]models.Page, len(idx))
		for j, pi := range idx {
			pages[j] = m.pages[pi]
		}
		out[i] = SectionTree{Section: s, Pages: pages}
	}
	return out
}

func sortSnapshot(s *models.Snapshot) {
	sort.SliceStable(s.Sections, func(i, j int) bool { return s.Sections[i].Order < s.Sections[j].Order })
	sort.SliceStable(s.Pages, func(i, j int) bool { return s.Pages[i].Order < s.Pages[j].Order })
}
