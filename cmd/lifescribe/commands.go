package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/lifescribe/app"
	"github.com/kbukum/lifescribe/bulk"
	"github.com/kbukum/lifescribe/render"
	"github.com/kbukum/lifescribe/validation"
)

func newAlignCmd() *cobra.Command {
	var chunks, rttm, format string
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align a chunk file with an RTTM file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			segs, _, err := app.Align(chunks, rttm)
			if err != nil {
				return err
			}
			return render.Write(cmd.OutOrStdout(), f, segs)
		},
	}
	cmd.Flags().StringVar(&chunks, "chunks", "", "JSON chunk file from the transcriber")
	cmd.Flags().StringVar(&rttm, "rttm", "", "RTTM file from the diarizer")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, vtt or markdown")
	_ = cmd.MarkFlagRequired("chunks")
	_ = cmd.MarkFlagRequired("rttm")
	return cmd
}

func newTranscribeCmd(cfgPath *string) *cobra.Command {
	var (
		persist                  bool
		session, date            string
		format, language         string
		speakers, minSpk, maxSpk int
	)
	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe, diarize and align one recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			sid, err := validation.ParseSessionID(session)
			if err != nil {
				return err
			}
			day, err := validation.ParseDate(date, time.Now())
			if err != nil {
				return err
			}

			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			if persist {
				if err := a.UseDatabase(); err != nil {
					return err
				}
			}
			return a.RunTask(cmd.Context(), func(ctx context.Context) error {
				pipe, err := a.Pipeline(ctx)
				if err != nil {
					return err
				}
				res, err := a.Transcribe(ctx, pipe, app.TranscribeRequest{
					AudioPath:   args[0],
					Session:     sid,
					Date:        day,
					Language:    language,
					NumSpeakers: speakers,
					MinSpeakers: minSpk,
					MaxSpeakers: maxSpk,
					Persist:     persist,
				})
				if err != nil {
					return err
				}
				if res.Stored != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "stored %d rows in %d conversations (session %s)\n",
						res.Stored.Rows, res.Stored.Conversations, res.Stored.SessionID)
				}
				return render.Write(cmd.OutOrStdout(), f, res.Segments)
			})
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store the segments in the database")
	cmd.Flags().StringVar(&session, "session", "", "session UUID (default: a new one)")
	cmd.Flags().StringVar(&date, "date", "", "recording date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, vtt or markdown")
	cmd.Flags().StringVar(&language, "language", "", "spoken language, empty to detect")
	cmd.Flags().IntVar(&speakers, "num-speakers", 0, "exact number of speakers")
	cmd.Flags().IntVar(&minSpk, "min-speakers", 0, "minimum number of speakers")
	cmd.Flags().IntVar(&maxSpk, "max-speakers", 0, "maximum number of speakers")
	return cmd
}

func newBulkCmd(cfgPath *string) *cobra.Command {
	var (
		dryRun  bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "bulk [dir]",
		Short: "Transcribe every recording in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			cfg := a.Cfg.Bulk
			if len(args) == 1 {
				cfg.Dir = args[0]
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			cfg.DryRun = cfg.DryRun || dryRun
			if !cfg.DryRun {
				if err := a.UseDatabase(); err != nil {
					return err
				}
			}

			return a.RunTask(cmd.Context(), func(ctx context.Context) error {
				report, err := a.Bulk(ctx, cfg, cmd.OutOrStdout())
				if report != nil && !cfg.DryRun {
					fmt.Fprintf(cmd.ErrOrStderr(), "done %d, skipped %d, failed %d, canceled %d\n",
						report.Count(bulk.StatusDone), report.Count(bulk.StatusSkipped),
						report.Count(bulk.StatusFailed), report.Count(bulk.StatusCanceled))
				}
				if err != nil {
					return err
				}
				if n := report.Count(bulk.StatusFailed); n > 0 {
					return fmt.Errorf("%d recordings failed", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned commands without running them")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "recordings processed in parallel")
	return cmd
}

func newIngestCmd(cfgPath *string) *cobra.Command {
	var session, date string
	cmd := &cobra.Command{
		Use:   "ingest <file.vtt>",
		Short: "Store a WebVTT transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := validation.ParseSessionID(session)
			if err != nil {
				return err
			}
			day, err := validation.ParseDate(date, time.Now())
			if err != nil {
				return err
			}
			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			if err := a.UseDatabase(); err != nil {
				return err
			}
			return a.RunTask(cmd.Context(), func(ctx context.Context) error {
				res, err := a.IngestVTT(ctx, args[0], day, sid)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ingested %d rows in %d conversations (session %s)\n",
					res.Rows, res.Conversations, res.SessionID)
				if res.MovedTo != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "moved to %s\n", res.MovedTo)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session UUID (default: a new one)")
	cmd.Flags().StringVar(&date, "date", "", "transcript date YYYY-MM-DD (default: today)")
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the transcript API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			if err := a.UseDatabase(); err != nil {
				return err
			}
			if _, err := a.Server(); err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

func newSpeakersCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speakers",
		Short: "Manage speaker labels",
	}

	var r app.Rename
	rename := &cobra.Command{
		Use:   "rename",
		Short: "Relabel a speaker within one conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			if err := a.UseDatabase(); err != nil {
				return err
			}
			return a.RunTask(cmd.Context(), func(ctx context.Context) error {
				n, err := a.RenameSpeaker(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "renamed %d rows\n", n)
				return nil
			})
		},
	}
	rename.Flags().StringVar(&r.Session, "session", "", "session UUID")
	rename.Flags().IntVar(&r.Conversation, "conversation", 1, "conversation number")
	rename.Flags().StringVar(&r.From, "from", "", "current label, e.g. SPEAKER_00")
	rename.Flags().StringVar(&r.To, "to", "", "new label")
	_ = rename.MarkFlagRequired("session")
	_ = rename.MarkFlagRequired("from")
	_ = rename.MarkFlagRequired("to")

	cmd.AddCommand(rename)
	return cmd
}

func newTokenCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for the API's write endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(*cfgPath)
			if err != nil {
				return err
			}
			tok, err := a.Token(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}
