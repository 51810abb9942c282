package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/notes"
	"github.com/spigell/apply-queue/internal/queue"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Compose recruiter notes for a saved queue or for the whole catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		composeNotes(cmd)
	},
}

func init() {
	rootCmd.AddCommand(notesCmd)

	notesCmd.Flags().StringP("queue", "q", "", "apply queue file produced by run. When omitted, the catalog is used")
	notesCmd.Flags().IntP("max-bullets", "b", 0, "bullets per note (default 3)")
	notesCmd.Flags().StringP("output", "o", "", "write notes to this file instead of stdout")
}

func composeNotes(cmd *cobra.Command) {
	ctx := context.Background()

	s := newSession(cmd)
	defer s.close()
	logger := s.logger

	candidate, err := s.loadCandidate()
	if err != nil {
		logger.Fatal("loading candidate", zap.Error(err))
	}

	var postings *catalog.Postings
	if queuePath, _ := cmd.Flags().GetString("queue"); queuePath != "" {
		q, err := queue.Load(queuePath)
		if err != nil {
			logger.Fatal("loading queue", zap.Error(err))
		}
		postings = q.Postings()
	} else {
		postings, err = s.loadPostings(ctx)
		if err != nil {
			logger.Fatal("loading postings", zap.Error(err))
		}
	}

	maxBullets, _ := cmd.Flags().GetInt("max-bullets")
	if maxBullets <= 0 {
		maxBullets = s.maxBullets()
	}

	composed := notes.Compose(candidate, postings, maxBullets)
	s.metrics.ObserveNotes(len(composed))
	logger.Info("notes composed", zap.Int("postings", postings.Len()), zap.Int("notes", len(composed)))

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := notes.ToFile(output, composed); err != nil {
			logger.Fatal("writing notes", zap.Error(err))
		}
		return
	}

	if err := writeJSON("", composed); err != nil {
		logger.Fatal("writing notes", zap.Error(err))
	}
}
