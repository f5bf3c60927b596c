package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"storyforge/internal/asset"
	"storyforge/internal/story"
)

// newProgress returns an AdmitBatch progress callback rendering a bar on
// stderr, or nil when stderr is not a terminal.
func newProgress(total int, description string) func(done, total int) {
	if total == 0 || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
	return func(done, _ int) {
		_ = bar.Set(done)
	}
}

// reportAssetErrors prints every accumulated admission failure, one line
// each, and returns a summary error.
func reportAssetErrors(w io.Writer, err error) error {
	var list asset.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			fmt.Fprintf(w, "  %v\n", e)
		}
		return fmt.Errorf("%d assets failed", len(list))
	}
	return err
}

// refNames maps admission results back onto the request source paths.
func refNames(requests []asset.Request, refs []asset.Ref) map[string]story.AssetRef {
	names := make(map[string]story.AssetRef, len(requests))
	for i, req := range requests {
		if !refs[i].IsZero() {
			names[req.Path] = story.AssetRef(refs[i].Name())
		}
	}
	return names
}
