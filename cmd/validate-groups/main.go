package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockedby/listingbot/internal/bot"
	"github.com/blockedby/listingbot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "validate-groups [file...]",
	Short: "Check group classification files",
	Long:  `Parses each groups file strictly: unknown fields, unknown group names and chats listed twice are errors. Without arguments the GROUPS_FILE setting is checked.`,
	RunE:  runValidate,

	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		args = []string{cfg.GroupsFile}
	}

	failed := 0
	for _, path := range args {
		if err := validateFile(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s: %v\n", path, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(args))
	}
	return nil
}

func validateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := bot.ParseGroups(f)
	if err != nil {
		return err
	}

	fmt.Printf("✅ %s is valid (%d chats)\n", path, table.Len())
	return nil
}
