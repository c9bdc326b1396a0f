package outline

import (
	"context"
	"fmt"

	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
)

type ItemKind string

const (
	KindSection ItemKind = "section"
	KindPage    ItemKind = "page"
)

// DragEvent is what the drag and drop widget reports when a drag ends.
// Parent ids name sections and only apply to pages; an empty destination
// parent means the source parent.
type DragEvent struct {
	Kind                ItemKind `json:"itemKind"`
	ItemID              string   `json:"itemId"`
	SourceIndex         int      `json:"sourceIndex"`
	DestinationIndex    int      `json:"destinationIndex"`
	SourceParentID      string   `json:"sourceParentId,omitempty"`
	DestinationParentID string   `json:"destinationParentId,omitempty"`
	DroppedOutside      bool     `json:"droppedOutsideTarget"`
}

// Reorder applies a drag to the in-memory outline and commits the changed
// order fields in one batch. The new arrangement is kept even if the commit
// fails; the next Open reads back whatever the store holds.
func (m *Manager) Reorder(ctx context.Context, ev DragEvent) error {
	if ev.DroppedOutside {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		batch *storage.Batch
		err   error
	)
	switch ev.Kind {
	case KindSection:
		batch, err = m.reorderSections(ev)
	case KindPage:
		batch, err = m.reorderPages(ev)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, ev.Kind)
	}
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := m.store.Commit(ctx, batch); err != nil {
		return m.fail("reorder", fmt.Errorf("commit: %w", err), "kind", ev.Kind, "item_id", ev.ItemID)
	}
	m.log.Debug("outline reordered", "kind", ev.Kind, "item_id", ev.ItemID, "writes", batch.Len())
	return nil
}

func (m *Manager) reorderSections(ev DragEvent) (*storage.Batch, error) {
	n := len(m.sections)
	src := ev.SourceIndex
	if ev.ItemID != "" {
		if src = m.sectionIndex(ev.ItemID); src < 0 {
			return nil, ErrSectionNotFound
		}
	}
	if src < 0 || src >= n || ev.DestinationIndex < 0 || ev.DestinationIndex >= n {
		return nil, ErrInvalidIndex
	}

	moved := m.sections[src]
	rest := make([]models.Section, 0, n)
	rest = append(rest, m.sections[:src]...)
	rest = append(rest, m.sections[src+1:]...)

	next := make([]models.Section, 0, n)
	next = append(next, rest[:ev.DestinationIndex]...)
	next = append(next, moved)
	next = append(next, rest[ev.DestinationIndex:]...)

	batch := storage.NewBatch()
	for i := range next {
		if next[i].Order != i {
			next[i].Order = i
			batch.Update(m.sectionPath(next[i].ID), storage.Fields{"order": i})
		}
	}
	m.sections = next
	return batch, nil
}

func (m *Manager) reorderPages(ev DragEvent) (*storage.Batch, error) {
	srcParent := ev.SourceParentID
	var from int
	if ev.ItemID != "" {
		if from = m.pageIndex(ev.ItemID); from < 0 {
			return nil, ErrPageNotFound
		}
		if srcParent == "" {
			srcParent = m.pages[from].SectionID
		}
		if m.pages[from].SectionID != srcParent {
			return nil, fmt.Errorf("%w: page %s is not in section %s", ErrPageNotFound, ev.ItemID, srcParent)
		}
	} else {
		siblings := m.pageIndexes(srcParent)
		if ev.SourceIndex < 0 || ev.SourceIndex >= len(siblings) {
			return nil, ErrInvalidIndex
		}
		from = siblings[ev.SourceIndex]
	}

	dstParent := ev.DestinationParentID
	if dstParent == "" {
		dstParent = srcParent
	}
	if m.sectionIndex(dstParent) < 0 {
		return nil, ErrSectionNotFound
	}

	moved := m.pages[from]
	rest := make([]models.Page, 0, len(m.pages))
	rest = append(rest, m.pages[:from]...)
	rest = append(rest, m.pages[from+1:]...)

	if ev.DestinationIndex < 0 {
		return nil, ErrInvalidIndex
	}
	// Insert before the first destination page whose current order is at
	// least the destination index, else after the last one.
	at, last := -1, -1
	for i := range rest {
		if rest[i].SectionID != dstParent {
			continue
		}
		last = i
		if at < 0 && rest[i].Order >= ev.DestinationIndex {
			at = i
		}
	}
	switch {
	case at >= 0:
	case last >= 0:
		at = last + 1
	default:
		at = len(rest)
	}

	crossParent := moved.SectionID != dstParent
	oldSection := moved.SectionID
	moved.SectionID = dstParent

	next := make([]models.Page, 0, len(m.pages))
	next = append(next, rest[:at]...)
	next = append(next, moved)
	next = append(next, rest[at:]...)

	batch := storage.NewBatch()
	touched := []string{srcParent}
	if crossParent {
		touched = append(touched, dstParent)
	}
	for _, sectionID := range touched {
		pos := 0
		for i := range next {
			p := &next[i]
			if p.SectionID != sectionID {
				continue
			}
			changed := p.Order != pos
			p.Order = pos
			pos++

			if crossParent && p.ID == moved.ID {
				fields, err := storage.EncodeDocument(*p)
				if err != nil {
					return nil, err
				}
				batch.Delete(m.pagePath(oldSection, p.ID))
				batch.Set(m.pagePath(p.SectionID, p.ID), fields)
				continue
			}
			if changed {
				batch.Update(m.pagePath(p.SectionID, p.ID), storage.Fields{"order": p.Order})
			}
		}
	}
	m.pages = next
	return batch, nil
}
