package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fakeyudi/retrace/internal/record"
	"github.com/fakeyudi/retrace/internal/replay"
	"github.com/fakeyudi/retrace/internal/transcript"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Follow live transcripts and rebuild the history as they grow",
	Long: `Follow live transcripts and rebuild the history as they grow.

Transcript files under the watched directories are tailed; whenever new
operations appear the whole history is replayed again so ordering across
sessions stays correct. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := args
		if len(roots) == 0 {
			roots = cfg.ResolveSearchRoots()
		}
		f := &transcript.Finder{Roots: roots, IgnorePatterns: cfg.IgnorePatterns}

		// Seed with everything already on disk.
		initial, err := f.Find(time.Time{})
		if err != nil {
			return err
		}
		var sets [][]record.Record
		if len(initial) > 0 {
			sets, err = loadRecords(cmd, initial)
			if err != nil {
				return err
			}
		}

		eng, rep, err := rebuild(nil, sets)
		if err != nil {
			return err
		}
		cmd.Printf("%s  watching %s  (%d operations, %d checkpoints)\n",
			time.Now().Format("15:04:05"), strings.Join(roots, ", "),
			len(eng.Operations()), eng.Checkpoints())
		printWarnings(cmd, rep)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		batches := make(chan transcript.Batch)
		errCh := make(chan error, 1)
		go func() { errCh <- f.Watch(ctx, batches) }()

		for {
			select {
			case b := <-batches:
				if b.Skipped > 0 {
					cmd.PrintErrf("warning: %s: %d unreadable lines skipped\n", b.Path, b.Skipped)
				}
				if len(b.Records) == 0 {
					continue
				}
				sets = append(sets, b.Records)
				eng, rep, err = rebuild(eng, sets)
				if err != nil {
					return err
				}
				cmd.Printf("%s  %s  +%d records  (%d operations, %d checkpoints)\n",
					time.Now().Format("15:04:05"), filepath.Base(b.Path), len(b.Records),
					len(eng.Operations()), eng.Checkpoints())
				printWarnings(cmd, rep)
			case err := <-errCh:
				if eng != nil {
					eng.Teardown()
				}
				return err
			}
		}
	},
}

// rebuild replays all record sets into a fresh engine, tearing down the
// previous one first. The engine has no append path: replaying everything
// keeps cross-session ordering and duplicate handling identical to a cold
// start.
func rebuild(old *replay.Engine, sets [][]record.Record) (*replay.Engine, *replay.Report, error) {
	if old != nil {
		if err := old.Teardown(); err != nil {
			return nil, nil, err
		}
	}
	store, _, err := newStore()
	if err != nil {
		return nil, nil, err
	}
	eng, rep := replay.Build(store, sets...)
	return eng, rep, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
