package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/logger"
	"github.com/anirbandas/job-apply-agent/internal/queue"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

const promptExit = "exit"

var errExit = errors.New("exit requested")

var queuesCmd = &cobra.Command{
	Use:   "queues <user-id>",
	Short: "Inspect the queue files of one user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inspectQueues(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(queuesCmd)

	queuesCmd.Flags().StringP("data-dir", "D", "", "directory holding the queue files")

	viper.BindPFlag("data-dir", queuesCmd.Flags().Lookup("data-dir"))
}

func inspectQueues(_ *cobra.Command, userID string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	dataDir := viper.GetString("data-dir")
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	store := queue.NewStore(dataDir, 0, logger)
	userID = utils.SanitizeUserID(userID)

	items := make([]string, 0, len(queue.Statuses)+1)
	for _, status := range queue.Statuses {
		items = append(items, string(status))
	}
	items = append(items, promptExit)

	prompt := promptui.Select{
		Label: "Which queue?",
		Items: items,
	}

	for {
		if err := showQueue(prompt, store, userID); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("inspecting queues", zap.Error(err))
		}
	}
}

func showQueue(prompt promptui.Select, store *queue.Store, userID string) error {
	_, choice, err := prompt.Run()
	if err != nil {
		return errExit
	}

	if choice == promptExit {
		return errExit
	}

	records, err := store.ReadAll(context.Background(), userID, queue.Status(choice))
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("queue %q is empty for user %s\n", choice, userID)
		return nil
	}

	for i, rec := range records {
		label := "<no job>"
		if rec.Job != nil {
			label = rec.Job.Label()
		}
		fmt.Printf("%d. %s (recorded %s)\n", i+1, label, rec.RecordedAt.Format("2006-01-02 15:04:05"))
		if rec.Clarification != "" {
			fmt.Printf("   clarification: %s\n", rec.Clarification)
		}
		if rec.ApplicationID != "" {
			fmt.Printf("   application id: %s\n", rec.ApplicationID)
		}
	}

	pretty := promptui.Select{
		Label: "Dump full records as JSON?",
		Items: []string{"No", "Yes"},
	}
	if _, answer, err := pretty.Run(); err == nil && answer == "Yes" {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	return nil
}
