// Package printer provides output formatting utilities for the CLI
package printer

import (
	"io"
	"os"
)

// PrintOptions combines options for both JSON and table output
type PrintOptions struct {
	// Format specifies the output format ("json" or "table")
	Format string
	// Writer is the output destination (defaults to os.Stdout if nil)
	Writer io.Writer
	// JsonIndent specifies if JSON should be pretty-printed
	JsonIndent bool
	// Columns picks and orders the table columns; unused for JSON
	Columns ColumnMapping
}

// DefaultPrintOptions returns standard print options for format.
func DefaultPrintOptions(format string) PrintOptions {
	return PrintOptions{
		Format:     format,
		Writer:     os.Stdout,
		JsonIndent: true,
	}
}

// Print writes res as JSON, or as a table of its elements otherwise.
// res must marshal to a JSON array for table output.
func Print(res any, format string, columns ColumnMapping) error {
	options := DefaultPrintOptions(format)
	options.Columns = columns
	return PrintWithOptions(res, options)
}

// PrintWithOptions formats and outputs data using the provided options
func PrintWithOptions(res any, options PrintOptions) error {
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	if options.Format == "json" {
		jsonOpts := DefaultJsonOptions()
		jsonOpts.Writer = options.Writer
		jsonOpts.Indent = options.JsonIndent
		return PrintJsonWithOptions(res, jsonOpts)
	}

	return PrintTableWithOptions(res, TableOptions{
		Columns: options.Columns,
		Writer:  options.Writer,
	})
}
