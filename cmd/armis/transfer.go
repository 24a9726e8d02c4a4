// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tejzpr/armis/internal/ingest"
	"github.com/tejzpr/armis/internal/item"
	"gopkg.in/yaml.v3"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole collection as an export envelope",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringP("format", "f", "json", "Output format (json or yaml)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q", format)
	}

	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	env, err := a.Store.Export(cmd.Context())
	if err != nil {
		return err
	}

	var data []byte
	if format == "yaml" {
		data, err = yaml.Marshal(env)
	} else {
		data, err = json.MarshalIndent(env, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d items to %s\n", len(env.Items), out)
	return nil
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an export envelope, skipping ids that already exist",
		Long: `Import an export envelope (JSON, or YAML for .yaml/.yml files). Use "-"
to read JSON from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	env, err := readEnvelope(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	res, err := a.Store.Import(cmd.Context(), *env)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully imported %d items (%d total)\n", res.Imported, res.Total)
	return nil
}

func readEnvelope(stdin io.Reader, path string) (*item.Envelope, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var env item.Envelope
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &env)
	default:
		err = json.Unmarshal(data, &env)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid import data in %s: %w", path, err)
	}
	return &env, nil
}

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Create documentation items from files, a folder or a web page",
		RunE:  runIngest,
	}
	cmd.Flags().String("folder", "", "Folder whose files are ingested (not recursive)")
	cmd.Flags().String("url", "", "Web page to scrape into a reference item")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	folder, _ := cmd.Flags().GetString("folder")
	url, _ := cmd.Flags().GetString("url")
	if len(args) == 0 && folder == "" && url == "" {
		return fmt.Errorf("nothing to ingest: pass files, --folder or --url")
	}

	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	src := ingest.Source{Folder: folder, URL: url}
	for _, path := range args {
		up, err := readUpload(path)
		if err != nil {
			log.Warn("skipping file", "file", path, "error", err)
			continue
		}
		src.Files = append(src.Files, up)
	}

	res, err := a.Ingester.Ingest(cmd.Context(), src)
	if err != nil {
		return err
	}
	for _, it := range res.Created {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", it.ID, it.Category, it.Title)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully processed %d items (%d total)\n", len(res.Created), res.Total)
	return nil
}

func readUpload(path string) (ingest.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ingest.Upload{}, err
	}
	if info.IsDir() {
		return ingest.Upload{}, fmt.Errorf("%s is a directory, use --folder", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Upload{}, err
	}
	return ingest.Upload{
		Filename:     filepath.Base(path),
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Data:         data,
	}, nil
}
