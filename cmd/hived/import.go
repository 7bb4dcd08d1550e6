package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openhive/hivecore/hive/config"
	"github.com/openhive/hivecore/hive/ports"
	"github.com/openhive/hivecore/hive/schedule"
	"github.com/openhive/hivecore/hive/storage"
)

// importFile is the YAML content bundle format: schedules, conversational
// modules and global command patterns in one document.
type importFile struct {
	Schedules []struct {
		Name          string         `yaml:"name"`
		SourceVersion int            `yaml:"source_version"`
		Doc           map[string]any `yaml:"doc"`
	} `yaml:"schedules"`
	Chats []struct {
		ModuleID      string `yaml:"module_id"`
		ContentID     string `yaml:"content_id"`
		Name          string `yaml:"name"`
		Prompt        string `yaml:"prompt"`
		OpeningLine   string `yaml:"opening_line"`
		SourceVersion int    `yaml:"source_version"`
	} `yaml:"chats"`
	Globals []struct {
		Name           string `yaml:"name"`
		Pattern        string `yaml:"pattern"`
		ResponseText   string `yaml:"response_text"`
		ResponseMarkup string `yaml:"response_markup"`
		Action         string `yaml:"action"`
		ModuleID       string `yaml:"module_id"`
		ContentID      string `yaml:"content_id"`
		SortKey        int    `yaml:"sort_key"`
	} `yaml:"globals"`
}

func newImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bundle.yaml>",
		Short: "Import schedules, chat modules and global responses",
		Long: `Import loads a YAML content bundle into the record store. Entries
carrying a source_version at or below the stored one are skipped, so
re-importing a bundle never clobbers newer content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, args[0])
		},
	}
}

func runImport(ctx context.Context, configPath, bundlePath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	var bundle importFile
	if err := yaml.Unmarshal(raw, &bundle); err != nil {
		return fmt.Errorf("parse bundle: %w", err)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	var imported, skipped int
	for _, s := range bundle.Schedules {
		doc := ports.Document(s.Doc)
		if err := schedule.Validate(doc); err != nil {
			return fmt.Errorf("schedule %q: %w", s.Name, err)
		}
		saved, err := store.SaveSchedule(ctx, &ports.Schedule{
			Name: s.Name, Doc: doc, SourceVersion: s.SourceVersion,
		})
		if err != nil {
			return err
		}
		count(&imported, &skipped, saved)
	}
	for _, c := range bundle.Chats {
		saved, err := store.SaveChatDefinition(ctx, &ports.ChatDefinition{
			ModuleID: c.ModuleID, ContentID: c.ContentID, Name: c.Name,
			Prompt: c.Prompt, OpeningLine: c.OpeningLine, SourceVersion: c.SourceVersion,
		})
		if err != nil {
			return err
		}
		count(&imported, &skipped, saved)
	}
	for _, g := range bundle.Globals {
		err := store.SaveGlobalResponse(ctx, &ports.GlobalResponseDef{
			Name: g.Name, Pattern: g.Pattern, ResponseText: g.ResponseText,
			ResponseMarkup: g.ResponseMarkup, Action: g.Action,
			ModuleID: g.ModuleID, ContentID: g.ContentID, SortKey: g.SortKey,
		})
		if err != nil {
			return err
		}
		imported++
	}

	fmt.Printf("imported %d entries, skipped %d stale\n", imported, skipped)
	return nil
}

func count(imported, skipped *int, saved bool) {
	if saved {
		*imported++
	} else {
		*skipped++
	}
}
