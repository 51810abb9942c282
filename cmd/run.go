package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/notes"
	"github.com/spigell/apply-queue/internal/profile"
	"github.com/spigell/apply-queue/internal/queue"
	"github.com/spigell/apply-queue/internal/sandbox"
)

const (
	PromptShowQueue           = "Show queue"
	PromptReportByCompanies   = "Report by companies"
	PromptComposeNotes        = "Compose notes"
	PromptSimulate            = "Simulate outcomes"
	PromptReportToFile        = "Dump report to file"
	PromptAppendToExcludeFile = "Append queue to exclude file"
	PromptNo                  = "No"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Next step?",
	Items: []string{PromptShowQueue, PromptReportByCompanies, PromptComposeNotes, PromptSimulate, PromptReportToFile, PromptAppendToExcludeFile, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Match the catalog against the candidate and build the apply queue",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask anything: compose notes, simulate and print the report")
	runCmd.Flags().IntP("top-k", "k", 0, "maximum number of queued jobs")
	runCmd.Flags().Float64("min-similarity", 0, "drop postings with a lower semantic similarity (0-1)")
	runCmd.Flags().StringP("output", "o", "", "write the auto-approve report to this file instead of stdout")

	viper.BindPFlag("matching.top-k", runCmd.Flags().Lookup("top-k"))
}

// report is everything a run produced.
type report struct {
	Queue    queue.ApplyQueue      `json:"queue"`
	Notes    []notes.RecruiterNote `json:"notes,omitempty"`
	Outcomes []sandbox.Result      `json:"outcomes,omitempty"`
	Summary  *sandbox.Summary      `json:"summary,omitempty"`
}

func run(cmd *cobra.Command) {
	ctx := context.Background()

	s := newSession(cmd)
	defer s.close()
	logger := s.logger

	if flag := cmd.Flag("min-similarity"); flag != nil && flag.Changed {
		value, _ := cmd.Flags().GetFloat64("min-similarity")
		if s.config.Matching == nil {
			s.config.Matching = &MatchingConfig{}
		}
		s.config.Matching.MinSimilarity = &value
	}

	postings, err := s.loadPostings(ctx)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err))
	}

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings left after filters"))
		return
	}

	candidate, err := s.loadCandidate()
	if err != nil {
		logger.Fatal("loading candidate", zap.Error(err))
	}

	matcher, err := s.newMatcher(ctx)
	if err != nil {
		logger.Fatal("building matcher", zap.Error(err))
	}

	opts := s.matchOptions()
	matches, err := matcher.MatchJobs(ctx, candidate, postings, opts)
	if err != nil {
		logger.Fatal("matching jobs", zap.Error(err))
	}

	r := &report{Queue: queue.Build(matches, opts.TopK)}
	logger.Info("apply queue built",
		zap.Int("total", r.Queue.TotalJobs),
		zap.Int("high", r.Queue.HighPriority),
		zap.Int("medium", r.Queue.MediumPriority),
		zap.Int("low", r.Queue.LowPriority),
		zap.Float64("average_match_score", r.Queue.AverageMatchScore),
	)

	if r.Queue.TotalJobs == 0 {
		logger.Info("exiting", zap.String("reason", "no postings matched"))
		return
	}

	if auto, _ := cmd.Flags().GetBool("auto-approve"); auto {
		r.compose(s, candidate)
		r.simulate(s, candidate)
		output, _ := cmd.Flags().GetString("output")
		if err := writeJSON(output, r); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, s, candidate, r); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, s *session, candidate *profile.Candidate, r *report) error {
	logger := s.logger

	switch action {
	case PromptShowQueue:
		pretty, _ := json.MarshalIndent(r.Queue, "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", r.Queue.TotalJobs))
		return nil
	case PromptReportByCompanies:
		pretty, _ := json.MarshalIndent(r.Queue.Postings().ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", r.Queue.TotalJobs))
		return nil
	case PromptComposeNotes:
		r.compose(s, candidate)
		pretty, _ := json.MarshalIndent(r.Notes, "", "  ")
		logger.Info(string(pretty), zap.Int("notes count", len(r.Notes)))
		return nil
	case PromptSimulate:
		r.simulate(s, candidate)
		pretty, _ := json.MarshalIndent(r.Outcomes, "", "  ")
		logger.Info(string(pretty),
			zap.Int("success", r.Summary.Success),
			zap.Int("processing", r.Summary.Processing),
			zap.Int("failure", r.Summary.Failure),
		)
		return nil
	case PromptReportToFile:
		filename, err := r.dumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(s, r.Queue)
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (r *report) compose(s *session, candidate *profile.Candidate) {
	r.Notes = notes.Compose(candidate, r.Queue.Postings(), s.maxBullets())
	s.metrics.ObserveNotes(len(r.Notes))
}

// simulate composes notes first when they are missing.
func (r *report) simulate(s *session, candidate *profile.Candidate) {
	if r.Notes == nil {
		r.compose(s, candidate)
	}
	r.Outcomes = sandbox.Simulate(r.Queue, r.Notes)
	summary := sandbox.Summarize(r.Outcomes)
	r.Summary = &summary
	for _, outcome := range r.Outcomes {
		s.metrics.ObserveSignal(string(outcome.Signal))
	}
}

func (r *report) dumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "apply_queue_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func appendToExcludeFile(s *session, q queue.ApplyQueue) error {
	excludeFile := s.config.ExcludeFile
	if excludeFile == "" {
		s.logger.Warn("exclude file is not configured", zap.String("hint", "set --exclude-file or the exclude-file key"))
		return nil
	}

	excluded, err := catalog.LoadExcluded(excludeFile)
	if err != nil {
		return fmt.Errorf("getting excluded postings from file: %w", err)
	}

	excluded.Append(q.Postings().ToExcluded(catalog.ExcludeActorQueue, "queued"))

	if err := excluded.ToFile(excludeFile); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}

	s.logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", len(excluded.Items)))
	return nil
}
