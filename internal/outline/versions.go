package outline

import (
	"context"
	"errors"
	"fmt"

	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
)

// Snapshot copies the current sections and pages.
func (m *Manager) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) snapshot() models.Snapshot {
	snap := models.Snapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		Sections:      make([]models.Section, len(m.sections)),
		Pages:         make([]models.Page, 0, len(m.pages)),
	}
	copy(snap.Sections, m.sections)
	for _, s := range m.sections {
		for _, i := range m.pageIndexes(s.ID) {
			snap.Pages = append(snap.Pages, m.pages[i])
		}
	}
	return snap
}

// SaveVersion stores the current outline as "Version N", N being one more
// than the number of versions already saved.
func (m *Manager) SaveVersion(ctx context.Context) (models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveVersion(ctx)
}

func (m *Manager) saveVersion(ctx context.Context) (models.Version, error) {
	existing, err := m.store.List(ctx, m.versionsPath(), storage.Query{})
	if err != nil {
		return models.Version{}, m.fail("save_version", fmt.Errorf("list versions: %w", err))
	}

	fields := storage.Fields{
		"name":      fmt.Sprintf("Version %d", len(existing)+1),
		"timestamp": storage.ServerTimestamp,
		"data":      m.snapshot(),
	}
	if m.editor != nil {
		fields["createdBy"] = m.editor.ID
	}
	id, err := m.store.Create(ctx, m.versionsPath(), fields)
	if err != nil {
		return models.Version{}, m.fail("save_version", fmt.Errorf("create version: %w", err))
	}

	doc, err := m.store.Get(ctx, storage.Join(m.versionsPath(), id))
	if err != nil {
		return models.Version{}, m.fail("save_version", fmt.Errorf("read back version: %w", err), "version_id", id)
	}
	var v models.Version
	if err := storage.DecodeDocument(doc, &v); err != nil {
		return models.Version{}, fmt.Errorf("decode version: %w", err)
	}
	m.log.Info("version saved", "version_id", id, "name", v.Name)
	return v, nil
}

// ListVersions returns the saved versions, most recent first.
func (m *Manager) ListVersions(ctx context.Context) ([]models.Version, error) {
	docs, err := m.store.List(ctx, m.versionsPath(), storage.Query{OrderBy: "timestamp", Descending: true})
	if err != nil {
		return nil, m.fail("list_versions", fmt.Errorf("list versions: %w", err))
	}
	out := make([]models.Version, len(docs))
	for i, doc := range docs {
		if err := storage.DecodeDocument(doc, &out[i]); err != nil {
			return nil, fmt.Errorf("decode version %s: %w", doc.Path, err)
		}
	}
	return out, nil
}

func (m *Manager) getVersion(ctx context.Context, versionID string) (models.Version, error) {
	doc, err := m.store.Get(ctx, storage.Join(m.versionsPath(), versionID))
	if errors.Is(err, storage.ErrNotFound) {
		return models.Version{}, ErrVersionNotFound
	}
	if err != nil {
		return models.Version{}, fmt.Errorf("get version: %w", err)
	}
	var v models.Version
	if err := storage.DecodeDocument(doc, &v); err != nil {
		return models.Version{}, fmt.Errorf("decode version: %w", err)
	}
	return v, nil
}

// RestoreVersion writes the sections and pages of a saved version back over
// the current ones at the same ids. Sections and pages created after the
// version was taken are left in the store. When saveCurrentFirst is set the
// current outline is saved as a new version beforehand and returned.
func (m *Manager) RestoreVersion(ctx context.Context, versionID string, saveCurrentFirst bool) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.getVersion(ctx, versionID)
	if err != nil {
		return nil, m.fail("restore_version", err, "version_id", versionID)
	}

	var saved *models.Version
	if saveCurrentFirst {
		pre, err := m.saveVersion(ctx)
		if err != nil {
			return nil, err
		}
		saved = &pre
	}

	snap := v.Data
	sortSnapshot(&snap)

	batch := storage.NewBatch()
	for _, s := range snap.Sections {
		fields, err := storage.EncodeDocument(s)
		if err != nil {
			return saved, err
		}
		batch.Set(m.sectionPath(s.ID), fields)
	}
	for _, p := range snap.Pages {
		fields, err := storage.EncodeDocument(p)
		if err != nil {
			return saved, err
		}
		batch.Set(m.pagePath(p.SectionID, p.ID), fields)
	}
	if err := m.store.Commit(ctx, batch); err != nil {
		return saved, m.fail("restore_version", fmt.Errorf("commit: %w", err), "version_id", versionID)
	}

	m.sections = snap.Sections
	m.pages = snap.Pages
	if m.selected != "" && m.pageIndex(m.selected) < 0 {
		m.selected = ""
	}
	m.viewingVersions = false
	m.log.Info("version restored", "version_id", versionID, "sections", len(snap.Sections), "pages", len(snap.Pages))
	return saved, nil
}

func (m *Manager) RenameVersion(ctx context.Context, versionID, name string) error {
	err := m.store.Update(ctx, storage.Join(m.versionsPath(), versionID), storage.Fields{"name": name})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrVersionNotFound
	}
	if err != nil {
		return m.fail("rename_version", fmt.Errorf("update version: %w", err), "version_id", versionID)
	}
	return nil
}
