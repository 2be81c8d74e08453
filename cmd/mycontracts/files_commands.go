package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/filestore"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored files that OCR artifacts match against",
	}
	filesCmd.AddCommand(newFilesAddCommand(ctx))
	filesCmd.AddCommand(newFilesListCommand(ctx))
	return filesCmd
}

func newFilesAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Copy a document into storage and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, store records.Store) error {
				svc, err := filestore.New(cfg.Paths.StorageDir, store)
				if err != nil {
					return err
				}
				file, err := svc.Register(cmd.Context(), args[0], name)
				if err != nil {
					return fmt.Errorf("register file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored file %d: %s (%d bytes, sha256 %s)\n",
					file.ID, file.Filename, file.Size, file.Checksum)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Stored filename (defaults to the source base name)")
	return cmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored files and the OCR records matched to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, store records.Store) error {
				files, err := store.StoredFiles(cmd.Context())
				if err != nil {
					return fmt.Errorf("list stored files: %w", err)
				}
				if jsonOutput {
					out := make([]api.StoredFile, 0, len(files))
					for _, file := range files {
						out = append(out, api.FromStoredFile(file))
					}
					return writeJSON(cmd, out)
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stored files")
					return nil
				}

				rows := make([][]string, 0, len(files))
				for _, file := range files {
					matched, err := store.FindByMatchedFile(cmd.Context(), file.ID)
					if err != nil {
						return fmt.Errorf("find records for file %d: %w", file.ID, err)
					}
					ocr := "-"
					if len(matched) > 0 {
						ocr = strconv.FormatInt(matched[0].ID, 10)
						if len(matched) > 1 {
							ocr = fmt.Sprintf("%s (+%d)", ocr, len(matched)-1)
						}
					}
					rows = append(rows, []string{
						strconv.FormatInt(file.ID, 10),
						file.Filename,
						strconv.FormatInt(file.Size, 10),
						valueOrDash(file.Mime),
						ocr,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Filename", "Size", "Mime", "OCR Record"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
