package command

import (
	"fmt"
	"io"
	"os"

	"github.com/octandevelopment/mvnpub/internal/style"
	"github.com/octandevelopment/mvnpub/module/publish"
	"github.com/octandevelopment/mvnpub/util/common"
	"github.com/octandevelopment/mvnpub/util/common/printer"
)

type fileRow struct {
	Path string `json:"path"`
	Size string `json:"size"`
	SHA1 string `json:"sha1"`
}

var fileColumns = printer.ColumnMapping{
	{Field: "path", Title: "File"},
	{Field: "size", Title: "Size", Right: true},
	{Field: "sha1", Title: "SHA-1"},
}

func printReceipt(w io.Writer, r *publish.Receipt, format string) error {
	if format == "json" {
		opts := printer.DefaultJsonOptions()
		opts.Writer = w
		return printer.PrintJsonWithOptions(r, opts)
	}

	heading := "Published " + r.Coordinates.String() + " to " + r.Repository
	if r.DryRun {
		heading = "Dry run for " + r.Coordinates.String() + ", nothing uploaded to " + r.Repository
	}
	fmt.Fprintln(w, style.Title.Render(heading))

	rows := make([]fileRow, 0, len(r.Files))
	for _, f := range r.Files {
		rows = append(rows, fileRow{Path: f.Path, Size: common.GetSize(f.Size), SHA1: f.SHA1})
	}
	opts := printer.DefaultPrintOptions(format)
	opts.Writer = w
	opts.Columns = fileColumns
	if err := printer.PrintWithOptions(rows, opts); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", style.DimText.Render("Repository: "), r.URL)
	fmt.Fprintf(w, "%s %s\n", style.DimText.Render("Signed by:  "), style.Code.Render(r.KeyID))
	fmt.Fprintf(w, "%s %s\n", style.DimText.Render("Fingerprint:"), r.Fingerprint)
	fmt.Fprintf(w, "%s %s\n", style.DimText.Render("Run:        "), r.RunID)
	fmt.Fprintf(w, "%s %d files, %s in %s\n", style.DimText.Render("Total:      "),
		len(r.Files), common.GetSize(r.TotalSize()), common.GetDuration(r.Duration))
	return nil
}

// printFiles lists files written below dir.
func printFiles(w io.Writer, dir string, paths []string, format string) error {
	rows := make([]fileRow, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rows = append(rows, fileRow{
			Path: relPath(dir, p),
			Size: common.GetSize(int64(len(data))),
			SHA1: publish.SHA1Hex(data),
		})
	}
	if format != "json" {
		fmt.Fprintln(w, style.Title.Render("Assembled into "+dir))
	}
	opts := printer.DefaultPrintOptions(format)
	opts.Writer = w
	opts.Columns = fileColumns
	return printer.PrintWithOptions(rows, opts)
}
