package storage

import (
	"context"
	"fmt"

	"github.com/openhive/hivecore/hive/ports"
)

func (s *Store) ListChatDefinitions(ctx context.Context) ([]ports.ChatDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT module_id, content_id, name, prompt, opening_line, source_version
		 FROM chat_definitions ORDER BY module_id, content_id`)
	if err != nil {
		return nil, fmt.Errorf("list chat definitions: %w", err)
	}
	defer rows.Close()

	var defs []ports.ChatDefinition
	for rows.Next() {
		var def ports.ChatDefinition
		if err := rows.Scan(&def.ModuleID, &def.ContentID, &def.Name,
			&def.Prompt, &def.OpeningLine, &def.SourceVersion); err != nil {
			return nil, fmt.Errorf("scan chat definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// SaveChatDefinition upserts a conversational module, keyed by its
// module/content pair. Imports with a stale source version are skipped.
func (s *Store) SaveChatDefinition(ctx context.Context, def *ports.ChatDefinition) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_definitions (module_id, content_id, name, prompt, opening_line, source_version)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (module_id, content_id) DO UPDATE SET name = excluded.name,
		 prompt = excluded.prompt, opening_line = excluded.opening_line,
		 source_version = excluded.source_version
		 WHERE excluded.source_version > chat_definitions.source_version`,
		def.ModuleID, def.ContentID, def.Name, def.Prompt, def.OpeningLine, def.SourceVersion)
	if err != nil {
		return false, fmt.Errorf("save chat definition %s/%s: %w", def.ModuleID, def.ContentID, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (s *Store) ListGlobalResponses(ctx context.Context) ([]ports.GlobalResponseDef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, pattern, response_text, response_markup, action, module_id, content_id, sort_key
		 FROM global_responses ORDER BY sort_key DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list global responses: %w", err)
	}
	defer rows.Close()

	var defs []ports.GlobalResponseDef
	for rows.Next() {
		var def ports.GlobalResponseDef
		if err := rows.Scan(&def.Name, &def.Pattern, &def.ResponseText,
			&def.ResponseMarkup, &def.Action, &def.ModuleID, &def.ContentID,
			&def.SortKey); err != nil {
			return nil, fmt.Errorf("scan global response: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// SaveGlobalResponse upserts a global command pattern by name.
func (s *Store) SaveGlobalResponse(ctx context.Context, def *ports.GlobalResponseDef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_responses (name, pattern, response_text, response_markup, action, module_id, content_id, sort_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET pattern = excluded.pattern,
		 response_text = excluded.response_text, response_markup = excluded.response_markup,
		 action = excluded.action, module_id = excluded.module_id,
		 content_id = excluded.content_id, sort_key = excluded.sort_key`,
		def.Name, def.Pattern, def.ResponseText, def.ResponseMarkup,
		def.Action, def.ModuleID, def.ContentID, def.SortKey)
	if err != nil {
		return fmt.Errorf("save global response %s: %w", def.Name, err)
	}
	return nil
}
