// Package main provides the CLI entry point for xlstream.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream"
	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
	"github.com/ukaji3/xlstream-go/pkg/xlstream/output"
)

var (
	format        string
	verbose       bool
	outputPath    string
	pretty        bool
	sheetName     string
	sheetsDir     string
	keepEmptyArea bool
	nrows         int
	concurrency   int
	limit         int
	strict        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xlstream",
		Short: "Read sheets and cells from xlsx and xlsb workbooks",
		Long: `xlstream reads xlsx and xlsb workbooks, either materializing whole sheets
or streaming their cells, and outputs JSON.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Workbook format: xlsx or xlsb (default: from extension)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Warn about cell values that cannot be represented")

	sheetsCmd := &cobra.Command{
		Use:   "sheets [input]",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runSheets,
	}
	sheetsCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	exportCmd := &cobra.Command{
		Use:   "export [input]",
		Short: "Export materialized sheets as rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	exportCmd.Flags().StringVar(&sheetName, "sheet", "", "Export only this sheet")
	exportCmd.Flags().StringVar(&sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	exportCmd.Flags().BoolVar(&keepEmptyArea, "keep-empty-area", false, "Keep the empty rows and columns before the first used cell")
	exportCmd.Flags().IntVar(&nrows, "nrows", -1, "Maximum number of rows per sheet (default: all)")
	exportCmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of sheets read at once")

	streamCmd := &cobra.Command{
		Use:   "stream [input]",
		Short: "Stream the cells of one sheet as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE:  runStream,
	}
	streamCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet to stream (default: first sheet)")
	streamCmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many cells (default: all)")

	rootCmd.AddCommand(sheetsCmd, exportCmd, streamCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func openOptions(mode xlstream.Mode) (xlstream.Options, error) {
	opts := xlstream.DefaultOptions()
	opts.Mode = mode
	opts.StrictCells = strict
	opts.Concurrency = concurrency
	switch format {
	case "":
	case "xlsx":
		opts.Format = xlstream.FormatXlsx
	case "xlsb":
		opts.Format = xlstream.FormatXlsb
	default:
		return opts, fmt.Errorf("invalid format: %s (must be xlsx or xlsb)", format)
	}
	logger, err := newLogger()
	if err != nil {
		return opts, err
	}
	opts.Logger = logger
	return opts, nil
}

func runSheets(cmd *cobra.Command, args []string) error {
	opts, err := openOptions(xlstream.ModeMetadata)
	if err != nil {
		return err
	}
	defer opts.Logger.Sync()

	wb, err := xlstream.Open(args[0], opts)
	if err != nil {
		return fmt.Errorf("open failed: %w", err)
	}
	defer wb.Close()

	jsonData, err := output.ToJSON(wb.SheetsMetadata(), pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	opts, err := openOptions(xlstream.ModeRows)
	if err != nil {
		return err
	}
	defer opts.Logger.Sync()

	exportOpts := xlstream.ExportOptions{}
	if keepEmptyArea {
		skip := false
		exportOpts.SkipEmptyArea = &skip
	}
	if nrows >= 0 {
		exportOpts.RowLimit = &nrows
	}

	var wb *models.WorkbookData
	if sheetName != "" {
		wb, err = exportOne(args[0], opts, exportOpts)
	} else {
		wb, err = xlstream.Extract(args[0], opts, exportOpts)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	jsonData, err := output.WorkbookToJSON(wb, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if sheetsDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	}

	if sheetsDir != "" {
		if err := writeSheetFiles(wb, sheetsDir); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}
	return nil
}

func exportOne(path string, opts xlstream.Options, exportOpts xlstream.ExportOptions) (*models.WorkbookData, error) {
	wb, err := xlstream.Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, err := wb.SheetByName(sheetName)
	if err != nil {
		return nil, err
	}
	var meta models.SheetMetadata
	for _, m := range wb.SheetsMetadata() {
		if m.Name() == sheetName {
			meta = m
		}
	}
	data := models.SheetData{Metadata: meta, Rows: sheet.Export(exportOpts)}
	if dims, ok := sheet.Dimensions(); ok {
		data.Dimensions = &dims
	}
	return &models.WorkbookData{BookName: wb.Name(), Sheets: []models.SheetData{data}}, nil
}

func writeSheetFiles(wb *models.WorkbookData, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, sheet := range wb.Sheets {
		jsonData, err := output.SheetToJSON(&sheet, pretty)
		if err != nil {
			return err
		}

		filename := filepath.Join(dir, sheet.Metadata.Name()+".json")
		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return err
		}
	}
	return nil
}

func runStream(cmd *cobra.Command, args []string) error {
	opts, err := openOptions(xlstream.ModeCells)
	if err != nil {
		return err
	}
	defer opts.Logger.Sync()

	wb, err := xlstream.Open(args[0], opts)
	if err != nil {
		return fmt.Errorf("open failed: %w", err)
	}
	defer wb.Close()

	var lazy *xlstream.LazySheet
	if sheetName != "" {
		lazy, err = wb.LazySheetByName(sheetName)
	} else {
		lazy, err = wb.LazySheetByIndex(0)
	}
	if err != nil {
		return err
	}
	defer lazy.Close()

	w := output.NewCellWriter(cmd.OutOrStdout())
	var readErr error
	for cell, err := range lazy.Cells() {
		if err != nil {
			readErr = err
			break
		}
		if err := w.Write(cell); err != nil {
			return err
		}
		if limit > 0 && w.Count() >= limit {
			break
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	summarize(cmd.ErrOrStderr(), lazy, w.Count())
	return readErr
}

func summarize(w io.Writer, lazy *xlstream.LazySheet, count int) {
	dims := "unknown"
	if d, ok := lazy.Dimensions(); ok {
		dims = d.String()
	}
	fmt.Fprintf(w, "%s: %s cells streamed (dimensions %s)\n", lazy.Name(), humanize.Comma(int64(count)), dims)
}
