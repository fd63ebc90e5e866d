package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/OpenTraceLab/kiparse/internal/cache"
	"github.com/OpenTraceLab/kiparse/internal/config"
	"github.com/OpenTraceLab/kiparse/internal/watch"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/pcb"
	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
	"github.com/spf13/cobra"
)

// Input extensions
const (
	extBoard   = ".kicad_pcb"
	extLibrary = ".kicad_sym"
)

// reportFunc renders one report of the input text to w
type reportFunc func(w io.Writer, text string) error

// runReport checks the input's extension and renders the report once, or
// on every change of the file in watch mode.
func runReport(cmd *cobra.Command, file, ext string, report reportFunc) error {
	if ext != "" && !strings.HasSuffix(file, ext) {
		return fmt.Errorf("%s command requires a %s file", cmd.Name(), ext)
	}

	once := func() error {
		return render(cmd, file, report)
	}
	if !cfg.Watch {
		return once()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Info("watching for changes", "file", file, "debounce", cfg.Debounce())
	return watch.Loop(ctx, file, cfg.Debounce(), once, func(err error) {
		logger.Error("report failed", "file", file, "err", err)
	})
}

// render reads the input and writes the report. JSON reports go through the
// cache when one is configured; a cache failure only costs a re-parse.
// The cache is held open for the duration of one render only.
func render(cmd *cobra.Command, file string, report reportFunc) error {
	text, err := pcb.ReadFile(file)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cfg.CachePath == "" || cfg.Format != config.FormatJSON {
		return report(out, text)
	}

	store, err := cache.Open(cfg.CachePath)
	if err != nil {
		logger.Warn("cache unavailable", "path", cfg.CachePath, "err", err)
		return report(out, text)
	}
	defer store.Close()

	options := []string{cfg.OutlineLayer, cfg.OnlyReferences}
	if args := cmd.Flags().Args(); len(args) > 1 {
		options = append(options, args[1:]...)
	}
	key := cache.Key(text, options...)
	data, ok, err := store.Get(cmd.Name(), key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
	}
	if ok {
		logger.Debug("cache hit", "command", cmd.Name(), "file", file)
		_, err := out.Write(data)
		return err
	}

	var buf bytes.Buffer
	if err := report(&buf, text); err != nil {
		return err
	}
	if err := store.Put(cmd.Name(), key, buf.Bytes()); err != nil {
		logger.Warn("cache write failed", "err", err)
	}
	_, err = out.Write(buf.Bytes())
	return err
}

// logWarnings reports blocks the parsers skipped
func logWarnings(kind string, warnings []sexp.Warning) {
	for _, w := range warnings {
		logger.Warn("skipped block", "kind", kind, "tag", w.Tag, "offset", w.Offset, "err", w.Err)
	}
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}
