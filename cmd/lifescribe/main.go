// Command lifescribe aligns speech recognition output with speaker
// diarization and stores the speaker-attributed transcripts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/lifescribe/app"
	"github.com/kbukum/lifescribe/version"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lifescribe",
		Short: "Speaker-attributed transcripts from ASR chunks and RTTM",
		Long: `lifescribe transcribes a recording, diarizes it, and merges both into
segments that say who said what and when.

Key commands:
  align                 merge an existing chunk file and RTTM file
  transcribe <audio>    run the backends on one recording
  bulk [dir]            transcribe every recording in a directory
  ingest <file.vtt>     store a WebVTT transcript
  serve                 run the transcript API
  speakers rename       relabel a speaker in one conversation`,
		Example: `  lifescribe align --chunks audio.json --rttm audio.rttm --format vtt
  lifescribe transcribe meeting.wav --persist --date 2024-05-17
  lifescribe bulk ./transcriptions --workers 2
  lifescribe speakers rename --session <uuid> --conversation 1 --from SPEAKER_00 --to Alice`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version.GetShortVersion()
	root.CompletionOptions.DisableDefaultCmd = true

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./config.yaml or ~/.config/lifescribe/config.yaml)")

	root.AddCommand(newAlignCmd())
	root.AddCommand(newTranscribeCmd(cfgPath))
	root.AddCommand(newBulkCmd(cfgPath))
	root.AddCommand(newIngestCmd(cfgPath))
	root.AddCommand(newServeCmd(cfgPath))
	root.AddCommand(newSpeakersCmd(cfgPath))
	root.AddCommand(newTokenCmd(cfgPath))
	root.AddCommand(newVersionCmd())
	return root
}

// load reads the config and creates the application.
func load(cfgPath string) (*app.App, error) {
	cfg, err := app.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.Print(cmd.OutOrStdout())
		},
	}
}
