package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/juggyai/juggy/internal/llm/prompt"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/spf13/cobra"
)

func init() {
	accountCreateCmd.Flags().Int64("credits", 0, "Initial credits, in minutes")
	accountCmd.AddCommand(accountCreateCmd, accountGetCmd, accountCreditsCmd)

	sessionCreateCmd.Flags().String("account", "", "Owning account id")
	sessionCreateCmd.Flags().String("agent", "", "Agent name, defaults to agents.default_agent")
	sessionCreateCmd.Flags().String("contexts", "", "JSON file with the interview contexts, read from stdin when piped")
	_ = sessionCreateCmd.MarkFlagRequired("account")
	sessionLinkCmd.Flags().String("started-at", "", "RFC 3339 start time of the call")
	sessionListCmd.Flags().Int("page", 1, "Page to show")
	sessionListCmd.Flags().Bool("to-analyse", false, "Only list completed sessions without a report")
	sessionCmd.AddCommand(
		sessionCreateCmd,
		sessionGetCmd,
		sessionListCmd,
		sessionLinkCmd,
		sessionEndCmd,
		sessionAnalyseCmd,
		sessionStatusCmd,
		sessionExchangesCmd,
	)

	agentsImportCmd.Flags().Bool("activate", false, "Activate every imported version")
	agentsCmd.AddCommand(agentsListCmd, agentsImportCmd, agentsActivateCmd)

	parseCmd.Flags().String("session", "", "Session whose contexts receive the parsed resume")

	rootCmd.AddCommand(accountCmd, sessionCmd, agentsCmd, parseCmd, turnsCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts and their credits",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		credits, _ := cmd.Flags().GetInt64("credits")
		acc, err := c.CreateAccount(cmd.Context(), credits)
		if err != nil {
			return err
		}
		return printJSON(acc)
	},
}

var accountGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		acc, err := c.GetAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(acc)
	},
}

var accountCreditsCmd = &cobra.Command{
	Use:   "credits ID AMOUNT",
	Short: "Add credits to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %v", args[1], err)
		}
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		acc, err := c.AddCredits(cmd.Context(), args[0], amount)
		if err != nil {
			return err
		}
		return printJSON(acc)
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage interview sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session",
	Example: heredoc.Doc(`
		# Create a session with contexts from a file
		juggy session create --account <account-id> --contexts contexts.json

		# Pipe the contexts in
		cat contexts.json | juggy session create --account <account-id>
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")
		agent, _ := cmd.Flags().GetString("agent")
		contextsFile, _ := cmd.Flags().GetString("contexts")

		var contexts string
		if contextsFile != "" {
			data, err := os.ReadFile(contextsFile)
			if err != nil {
				return fmt.Errorf("failed to read contexts: %v", err)
			}
			contexts = string(data)
		} else {
			var err error
			if contexts, err = MaybeReadStdin(""); err != nil {
				return fmt.Errorf("failed to read contexts from stdin: %v", err)
			}
		}
		if contexts != "" && !json.Valid([]byte(contexts)) {
			return fmt.Errorf("contexts must be a JSON object")
		}

		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		req := proto.CreateSessionRequest{AccountID: accountID, AgentName: agent}
		if contexts != "" {
			req.Contexts = json.RawMessage(contexts)
		}
		rsp, err := c.CreateSession(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(rsp)
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		sess, err := c.GetSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sess)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list ACCOUNT_ID",
	Short: "List the sessions of an account, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		if toAnalyse, _ := cmd.Flags().GetBool("to-analyse"); toAnalyse {
			sessions, err := c.ListSessionsToAnalyse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(sessions)
		}
		page, _ := cmd.Flags().GetInt("page")
		p, err := c.ListSessions(cmd.Context(), args[0], page)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var sessionLinkCmd = &cobra.Command{
	Use:   "link ID CALL_ID",
	Short: "Link a session to a call",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		startedAt, _ := cmd.Flags().GetString("started-at")
		if startedAt != "" {
			if _, err := time.Parse(time.RFC3339Nano, startedAt); err != nil {
				return fmt.Errorf("invalid --started-at: %v", err)
			}
		}
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		rsp, err := c.LinkSession(cmd.Context(), args[0], proto.LinkSessionRequest{
			CallID:        args[1],
			CallStartedAt: startedAt,
		})
		if err != nil {
			return err
		}
		return printJSON(rsp)
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end ID",
	Short: "Mark a session's call as finished",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		sess, err := c.EndSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sess)
	},
}

var sessionAnalyseCmd = &cobra.Command{
	Use:   "analyse ID",
	Short: "Write the analysis report of a completed session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		sess, err := c.AnalyseSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(sess.Summary)
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status ID",
	Short: "Show the live status of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		status, err := c.SessionStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var sessionExchangesCmd = &cobra.Command{
	Use:   "exchanges ID",
	Short: "List the recorded exchanges of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		exchanges, err := c.ListExchanges(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(exchanges)
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage interviewer agent prompts",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every agent version",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		agents, err := c.ListAgents(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(agents)
	},
}

var agentsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Create the agent versions listed in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activateAll, _ := cmd.Flags().GetBool("activate")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open agents file: %v", err)
		}
		defer f.Close()
		file, err := prompt.ReadFile(f)
		if err != nil {
			return err
		}

		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		imported := make([]*proto.Agent, 0, len(file.Agents))
		for _, fa := range file.Agents {
			agent, err := c.CreateAgent(cmd.Context(), proto.CreateAgentRequest{
				Name:     fa.Name,
				Version:  fa.Version,
				Prompt:   fa.Prompt,
				Config:   fa.Config,
				Activate: fa.Active || activateAll,
			})
			if err != nil {
				return fmt.Errorf("agent %s@%s: %w", fa.Name, fa.Version, err)
			}
			imported = append(imported, agent)
		}
		return printJSON(imported)
	},
}

var agentsActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Make an agent version the one served for its name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		agent, err := c.ActivateAgent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(agent)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse MEDIA_ID",
	Short: "Queue a resume for parsing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		job, err := c.CreateParseJob(cmd.Context(), proto.CreateParseJobRequest{
			MediaID:   args[0],
			SessionID: sessionID,
		})
		if err != nil {
			return err
		}
		return printJSON(job)
	},
}

var turnsCmd = &cobra.Command{
	Use:   "turns [STREAM_ID]",
	Short: "Show the candidate turns that are still streaming",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := setupClient(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			turn, err := c.GetTurn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(turn)
		}
		turns, err := c.GetTurns(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(turns)
	},
}
