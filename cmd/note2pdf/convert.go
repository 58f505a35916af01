package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Schewwpid/note2PDF/container"
	"github.com/Schewwpid/note2PDF/convert"
	"github.com/Schewwpid/note2PDF/observability"
	"github.com/Schewwpid/note2PDF/render"
)

var convertCmd = &cobra.Command{
	Use:   "convert [dir|file...]",
	Short: "Convert note archives to PDF",
	Long: `Convert processes each argument. A directory has every .note file
directly inside it converted; a file is converted on its own. The PDF is
written next to its input with a .pdf extension. Files fail independently
unless --fail-fast is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	builder := cfg.SceneBuilder()
	if builder == nil {
		return errors.New("no scene builder: set builder.command or --builder")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	renderOpts := append(cfg.RenderOptions(), render.WithLogger(log))
	c := &convert.Converter{
		Extract: func(path string) (*container.Session, error) {
			return container.Extract(path, cfg.ExtractOptions()...)
		},
		DecodeOptions: cfg.DecodeOptions(),
		Builder:       builder,
		Renderer:      render.NewContext(renderOpts...),
		Logger:        log,
	}
	opts := convert.BatchOptions{Workers: cfg.Workers, Strategy: cfg.Strategy()}

	total := &convert.BatchResult{}
	var runErr error
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		var res *convert.BatchResult
		if info.IsDir() {
			res, err = c.ConvertDir(ctx, arg, opts)
		} else {
			res, err = c.ConvertFiles(ctx, []string{arg}, opts)
		}
		if res != nil {
			report(cmd.OutOrStdout(), res)
			total.Converted += res.Converted
			total.Skipped += res.Skipped
			total.Failed += res.Failed
		}
		if err != nil {
			runErr = err
			break
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d converted, %d skipped, %d failed\n", total.Converted, total.Skipped, total.Failed)
	if runErr != nil {
		return runErr
	}
	if total.HasFailures() {
		return fmt.Errorf("%d file(s) failed", total.Failed)
	}
	log.Debug("convert finished", observability.Int("files", total.Total()))
	return nil
}

func report(w io.Writer, res *convert.BatchResult) {
	for _, r := range res.Results {
		switch r.Status {
		case convert.StatusConverted:
			fmt.Fprintf(w, "PDF saved at %s\n", r.Output)
		case convert.StatusFailed:
			fmt.Fprintf(w, "failed: %v\n", r.Err)
		}
	}
}

func init() {
	convertCmd.Flags().Int("workers", 4, "number of files converted in parallel")
	convertCmd.Flags().Float64("resolution", render.DefaultResolution, "rendering resolution in DPI")
	convertCmd.Flags().Bool("strict-scenes", false, "fail on scenes that are not valid SVG instead of writing a blank page")
	convertCmd.Flags().Bool("fail-fast", false, "stop starting new files after the first failure")
	convertCmd.Flags().String("builder", "", "scene builder program")

	_ = viper.BindPFlag("workers", convertCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("resolution", convertCmd.Flags().Lookup("resolution"))
	_ = viper.BindPFlag("strict_scenes", convertCmd.Flags().Lookup("strict-scenes"))
	_ = viper.BindPFlag("fail_fast", convertCmd.Flags().Lookup("fail-fast"))
	_ = viper.BindPFlag("builder.command", convertCmd.Flags().Lookup("builder"))

	rootCmd.AddCommand(convertCmd)
}
