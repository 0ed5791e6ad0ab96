package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/goquery"
)

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	File         string `arg:"" optional:"" help:"HTML file to read (default: stdin)"`
	URL          string `help:"URL to report in the result"`
	KeepWrappers bool   `help:"Report wrapper elements that only repeat a descendant's text"`
}

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	var r io.Reader = deps.Stdin
	if c.File != "" && c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			return err
		}
		defer f.Close()
		r = f
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading HTML: %w", err)
	}

	extractor := deps.Extractor
	if extractor == nil {
		extractor = goquery.NewExtractorWith(pagetext.Extractor{KeepWrappers: c.KeepWrappers})
	}
	result, err := extractor.Extract(string(raw), c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pagetext.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
