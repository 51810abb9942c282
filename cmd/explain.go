package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/catalog"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the skill fit of one posting",
	Run: func(cmd *cobra.Command, _ []string) {
		explain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().String("job", "", "job id to explain. When omitted, a posting is chosen interactively")
}

func explain(cmd *cobra.Command) {
	ctx := context.Background()

	s := newSession(cmd)
	defer s.close()
	logger := s.logger

	postings, err := s.loadPostings(ctx)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err))
	}

	candidate, err := s.loadCandidate()
	if err != nil {
		logger.Fatal("loading candidate", zap.Error(err))
	}

	jobID, _ := cmd.Flags().GetString("job")
	if jobID == "" {
		jobID, err = selectPosting(postings)
		if err != nil {
			logger.Fatal("selecting a posting", zap.Error(err))
		}
	}

	posting, err := postings.FindByID(jobID)
	if err != nil {
		logger.Fatal("finding posting", zap.Error(err), zap.Strings("known ids", postings.IDs()))
	}

	matcher, err := s.newMatcher(ctx)
	if err != nil {
		logger.Fatal("building matcher", zap.Error(err))
	}

	explanation, err := matcher.ExplainMatch(ctx, posting, candidate)
	if err != nil {
		logger.Fatal("explaining match", zap.Error(err))
	}

	if err := writeJSON("", explanation); err != nil {
		logger.Fatal("writing explanation", zap.Error(err))
	}
}

func selectPosting(postings *catalog.Postings) (string, error) {
	if postings.Len() == 0 {
		return "", fmt.Errorf("there are no postings to choose from")
	}

	items := make([]string, 0, postings.Len())
	for _, p := range postings.Items {
		items = append(items, fmt.Sprintf("%s %s / %s", p.ID, p.Title, p.Company))
	}

	postingPrompt := promptui.Select{
		Label: "Choose a posting and press ENTER",
		Items: items,
		Size:  10,
	}

	_, selected, err := postingPrompt.Run()
	if err != nil {
		return "", err
	}

	return strings.Split(selected, " ")[0], nil
}
