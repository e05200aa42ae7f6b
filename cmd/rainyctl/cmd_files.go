package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gustavop-dev/rainy-project/internal/gateway"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		field  string
		fields map[string]string
	)
	cmd := &cobra.Command{
		Use:   "upload <path> <file>",
		Short: "Upload a file as multipart form data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("rainyctl: open %s: %w", args[1], err)
			}
			defer f.Close()

			resp, err := a.client.UploadFile(cmd.Context(), args[0], gateway.Form{
				Fields: fields,
				Files: []gateway.FormFile{{
					Field:       field,
					Name:        filepath.Base(args[1]),
					ContentType: mime.TypeByExtension(filepath.Ext(args[1])),
					Content:     f,
				}},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.Status, resp.Body)
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "file", "Form field holding the file")
	cmd.Flags().StringToStringVar(&fields, "set", nil, "Extra form fields (key=value)")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <path> <out>",
		Short: "Download a backend resource to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Fetch(cmd.Context(), args[0], gateway.AsBlob())
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], resp.Body, 0o644); err != nil {
				return fmt.Errorf("rainyctl: write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(resp.Body), args[1])
			return nil
		},
	}
}
