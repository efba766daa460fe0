package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/picpress/picpress/internal/config"
	"github.com/picpress/picpress/internal/encode"
	"github.com/picpress/picpress/internal/pipeline"
	"github.com/picpress/picpress/internal/registry"
	"github.com/picpress/picpress/internal/render"
	"github.com/picpress/picpress/internal/sink"
)

var buildCmd = &cobra.Command{
	Use:   "build FILE...",
	Short: "Build a PDF from a list of image files",
	Long: `Build reads the given images in argument order and produces a
single PDF with one image per page. Each image is scaled to fit the page
and centered, preserving its aspect ratio.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "", "Output file (defaults to <title>.pdf in the output dir)")
	buildCmd.Flags().String("page", "", "Page preset: a4, letter or legal (default a4)")
	buildCmd.Flags().String("title", "document", "Document title, used for the output file name")
	buildCmd.Flags().Int("concurrency", 0, "Parallel image encodes (default from config)")
}

// loadAssets probes each file's dimensions and builds the ordered batch.
func loadAssets(files []string) ([]registry.ImageAsset, error) {
	assets := make([]registry.ImageAsset, 0, len(files))
	for _, f := range files {
		width, height, err := encode.Probe(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		assets = append(assets, registry.ImageAsset{
			ID:        registry.NewAssetID(),
			SourceRef: f,
			Width:     width,
			Height:    height,
		})
	}
	return assets, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	title := mustGetString(cmd, "title")
	page := cfg.PageSpec(mustGetString(cmd, "page"))
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Render.Concurrency
	}

	assets, err := loadAssets(args)
	if err != nil {
		return err
	}

	reg := registry.New()
	reg.Append(assets...)

	var out sink.Sink
	if output := mustGetString(cmd, "output"); output != "" {
		if !strings.HasSuffix(output, ".pdf") {
			output += ".pdf"
		}
		out = sink.FileSink{Path: output}
	} else {
		out = sink.DirSink{Dir: cfg.Output.Dir}
	}

	bar := progressbar.NewOptions(len(assets),
		progressbar.OptionSetDescription("Encoding images"),
		progressbar.OptionShowCount(),
	)

	renderer := render.NewChromeRenderer(page, time.Duration(cfg.Render.TimeoutSeconds)*time.Second)
	pipe := pipeline.New(reg, encode.NewEncoder(encode.FileReader{}), renderer, out, pipeline.Options{
		Page:        page,
		Title:       title,
		Concurrency: concurrency,
		OnProgress:  func(done, total int) { _ = bar.Set(done) },
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipe.Generate(ctx); err != nil {
		fmt.Fprintln(os.Stderr)
		var encErr *pipeline.EncodeError
		if errors.As(err, &encErr) {
			return fmt.Errorf("encoding failed for %s: %w", args[encErr.Index], encErr.Err)
		}
		return err
	}
	fmt.Fprintln(os.Stderr)
	fmt.Printf("Generated %d pages\n", pipe.Status().Pages)
	return nil
}
