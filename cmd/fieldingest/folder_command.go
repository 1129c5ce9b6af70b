package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldingest/internal/folder"
)

func newFolderCommand() *cobra.Command {
	folderCmd := &cobra.Command{
		Use:         "folder",
		Short:       "Source folder utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	folderCmd.AddCommand(&cobra.Command{
		Use:   "check <path>...",
		Short: "Check folder names against DATE-OBSERVER",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			invalid := 0
			for _, path := range args {
				label := folder.Base(path)
				name, err := folder.Parse(path)
				if err != nil {
					invalid++
					fmt.Fprintln(out, renderStatusLine(label, statusError, err.Error(), colorize))
					continue
				}
				message := fmt.Sprintf("date %s, observer %s, catalog folder %s", name.DateString(), name.Observer, name.CatalogFolder())
				fmt.Fprintln(out, renderStatusLine(label, statusOK, message, colorize))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d folder names are invalid", invalid, len(args))
			}
			return nil
		},
	})
	return folderCmd
}
