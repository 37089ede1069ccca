package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat CALL_ID [message...]",
	Short: "Send a single candidate turn for a call",
	Long: heredoc.Doc(`
		Send one candidate utterance to the chat completions endpoint the way a
		voice platform would, and print the interviewer's reply as it streams.
		The message can be provided as arguments or piped from stdin.
	`),
	Example: heredoc.Doc(`
		# Send a turn for a linked call
		juggy chat <call-id> I have five years of Go experience

		# Pipe the candidate's answer from stdin
		echo "I led the migration to Kubernetes." | juggy chat <call-id>

		# Use a specific agent for this turn
		juggy chat --agent technical <call-id> "Ready when you are."
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		createdAt, _ := cmd.Flags().GetString("created-at")
		if createdAt == "" {
			createdAt = time.Now().UTC().Format(time.RFC3339Nano)
		}

		message, err := MaybeReadStdin(strings.Join(args[1:], " "))
		if err != nil {
			slog.Error("Failed to read from stdin", "error", err)
			return err
		}
		message = strings.TrimSpace(message)
		if message == "" {
			return fmt.Errorf("no message provided")
		}

		c, err := setupClient(cmd)
		if err != nil {
			return err
		}

		req := proto.ChatCompletionRequest{
			Messages: []proto.ChatMessage{{Role: "user", Content: message}},
			Call:     &proto.Call{ID: args[0], CreatedAt: createdAt},
		}
		err = c.Chat(cmd.Context(), req, agent, func(chunk proto.ChatCompletionChunk) error {
			for _, choice := range chunk.Choices {
				if _, err := fmt.Fprint(os.Stdout, choice.Delta.Content); err != nil {
					return err
				}
			}
			return nil
		})
		fmt.Fprintln(os.Stdout)
		return err
	},
}

func init() {
	chatCmd.Flags().String("agent", "", "Agent to answer with instead of the session's")
	chatCmd.Flags().String("created-at", "", "RFC 3339 start time reported for the call, defaults to now")
	rootCmd.AddCommand(chatCmd)
}
