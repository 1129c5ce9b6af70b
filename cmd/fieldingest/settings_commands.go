package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fieldingest/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage saved folder defaults",
	}
	settingsCmd.AddCommand(newSettingsListCommand(ctx))
	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsUnsetCommand(ctx))
	return settingsCmd
}

func newSettingsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSettings(func(store *settings.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					value, updated := "-", ""
					if e.Set {
						value = e.Value
						updated = e.UpdatedAt.Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{string(e.Key), value, updated})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value", "Updated"}, rows, nil))
				return nil
			})
		},
	}
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settings.ParseKey(args[0])
			if err != nil {
				return err
			}
			return ctx.withSettings(func(store *settings.Store) error {
				value, ok, err := store.Get(cmd.Context(), string(key))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is not set", key)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settings.ParseKey(args[0])
			if err != nil {
				return err
			}
			value := strings.TrimSpace(args[1])
			return ctx.withSettings(func(store *settings.Store) error {
				if err := store.Set(cmd.Context(), string(key), value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
				return nil
			})
		},
	}
}

func newSettingsUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := settings.ParseKey(args[0])
			if err != nil {
				return err
			}
			return ctx.withSettings(func(store *settings.Store) error {
				return store.Delete(cmd.Context(), string(key))
			})
		},
	}
}
