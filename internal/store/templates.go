package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/scribe/internal/notes"
)

// TemplateSections returns a template's sections in display order. An unknown
// template yields ErrNotFound.
func (s *Store) TemplateSections(ctx context.Context, templateID string) ([]notes.SectionInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT section_id, name, description, is_required, display_order, ai_prompt_hints
		FROM note_template_sections
		WHERE template_id = $1
		ORDER BY display_order, section_id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("query template sections: %w", err)
	}
	defer rows.Close()

	var sections []notes.SectionInfo
	for rows.Next() {
		var si notes.SectionInfo
		if err := rows.Scan(&si.ID, &si.Name, &si.Description, &si.IsRequired, &si.DisplayOrder, &si.AIPromptHints); err != nil {
			return nil, fmt.Errorf("scan template section: %w", err)
		}
		sections = append(sections, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read template sections: %w", err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("template %q: %w", templateID, ErrNotFound)
	}
	return sections, nil
}

// SaveTemplate replaces the stored sections of a template.
func (s *Store) SaveTemplate(ctx context.Context, templateID string, sections []notes.SectionInfo) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM note_template_sections WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("clear template sections: %w", err)
	}
	for _, si := range sections {
		_, err := tx.Exec(ctx, `
			INSERT INTO note_template_sections (template_id, section_id, name, description, is_required, display_order, ai_prompt_hints)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			templateID, si.ID, si.Name, si.Description, si.IsRequired, si.DisplayOrder, si.AIPromptHints,
		)
		if err != nil {
			return fmt.Errorf("insert template section %s: %w", si.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
