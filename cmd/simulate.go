package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/notes"
	"github.com/spigell/apply-queue/internal/queue"
	"github.com/spigell/apply-queue/internal/sandbox"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate application outcomes for a saved queue and its notes",
	Run: func(cmd *cobra.Command, _ []string) {
		simulate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("queue", "q", "", "apply queue file produced by run")
	simulateCmd.Flags().StringP("notes", "n", "", "notes file produced by the notes command")
	simulateCmd.Flags().StringP("output", "o", "", "write outcomes to this file instead of stdout")

	_ = simulateCmd.MarkFlagRequired("queue")
	_ = simulateCmd.MarkFlagRequired("notes")
}

type simulation struct {
	Outcomes []sandbox.Result `json:"outcomes"`
	Summary  sandbox.Summary  `json:"summary"`
}

func simulate(cmd *cobra.Command) {
	s := newSession(cmd)
	defer s.close()
	logger := s.logger

	queuePath, _ := cmd.Flags().GetString("queue")
	q, err := queue.Load(queuePath)
	if err != nil {
		logger.Fatal("loading queue", zap.Error(err))
	}

	notesPath, _ := cmd.Flags().GetString("notes")
	recruiterNotes, err := notes.Load(notesPath)
	if err != nil {
		logger.Fatal("loading notes", zap.Error(err))
	}

	outcomes := sandbox.Simulate(q, recruiterNotes)
	for _, outcome := range outcomes {
		s.metrics.ObserveSignal(string(outcome.Signal))
	}

	result := simulation{Outcomes: outcomes, Summary: sandbox.Summarize(outcomes)}
	logger.Info("outcomes simulated",
		zap.Int("success", result.Summary.Success),
		zap.Int("processing", result.Summary.Processing),
		zap.Int("failure", result.Summary.Failure),
	)

	output, _ := cmd.Flags().GetString("output")
	if err := writeJSON(output, result); err != nil {
		logger.Fatal("writing outcomes", zap.Error(err))
	}
}
