package db

import (
	"context"
	"fmt"
	"settlement/entity"
)

type auditRow struct {
	entity.AuditEntry
	Changes jsonColumn[[]entity.FieldChange] `db:"changes"`
}

// AppendAuditEntry inserts one entry. Entries are never updated or deleted.
func (s *Store) AppendAuditEntry(ctx context.Context, entry entity.AuditEntry) error {
	row := auditRow{
		AuditEntry: entry,
		Changes:    jsonColumn[[]entity.FieldChange]{V: entry.Changes},
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO audit_entries
		(entry_id, actor, action, entity_type, entity_id, changes, recorded_at)
		VALUES (:entry_id, :actor, :action, :entity_type, :entity_id, :changes, :recorded_at)`, row)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, entityType entity.EntityType, entityID string) ([]entity.AuditEntry, error) {
	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `SELECT entry_id, actor, action, entity_type, entity_id, changes, recorded_at
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY recorded_at, entry_id`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("selecting audit entries: %w", err)
	}

	entries := make([]entity.AuditEntry, 0, len(rows))
	for _, r := range rows {
		e := r.AuditEntry
		e.Changes = r.Changes.V
		entries = append(entries, e)
	}
	return entries, nil
}
