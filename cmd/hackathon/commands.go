// File: cmd/hackathon/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/smartdevs17/hackathon-platform/internal/apiclient"
	"github.com/smartdevs17/hackathon-platform/internal/config"
	"github.com/smartdevs17/hackathon-platform/internal/connection"
	"github.com/smartdevs17/hackathon-platform/internal/contract"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/internal/notification"
	"github.com/smartdevs17/hackathon-platform/internal/session"
	"github.com/smartdevs17/hackathon-platform/internal/storage"
	"github.com/smartdevs17/hackathon-platform/internal/submission"
	"github.com/smartdevs17/hackathon-platform/internal/view"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// clientEnv is what the read commands need: the API client, the view shell
// and, when enabled, the snapshot store
type clientEnv struct {
	config *config.Config
	api    *apiclient.Client
	store  storage.Storage
	shell  *view.Shell
}

func newClientEnv() (*clientEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	env := &clientEnv{
		config: cfg,
		api:    apiclient.New(cfg.Client.APIBaseURL, cfg.Client.Timeout),
	}

	var cache view.SnapshotStore
	if cfg.Storage.Enabled {
		store, err := storage.Open(&cfg.Storage, nil)
		if err != nil {
			utils.GetLogger().WithError(err).Warn("Snapshot store unavailable, continuing without cache")
		} else {
			env.store = store
			cache = store
		}
	}

	env.shell = view.NewShell(env.api, cache)
	return env, nil
}

func (env *clientEnv) Close() {
	if env.store != nil {
		env.store.Close()
	}
}

// writeEnv adds the ledger connection, wallet session and submission flow
type writeEnv struct {
	*clientEnv
	connection *connection.ConnectionManager
	sessions   *session.Manager
	session    *session.Session
	notifier   *notification.NotificationManager
	flow       *submission.Flow
}

func newWriteEnv(ctx context.Context) (*writeEnv, error) {
	client, err := newClientEnv()
	if err != nil {
		return nil, err
	}
	cfg := client.config

	if err := cfg.ValidateLedger(); err != nil {
		client.Close()
		return nil, err
	}
	if cfg.Wallet.PrivateKey == "" {
		client.Close()
		return nil, utils.NewAppError(utils.ErrCodeNotConnected, "No wallet configured", "set PRIVATE_KEY")
	}

	metricsManager := metrics.NewManager()
	conn := connection.NewConnectionManager(&cfg.Ledger)
	conn.SetMetricsManager(metricsManager)
	backend := connection.NewBackend(conn, cfg.Ledger.ReceiptPollInterval)

	binding, err := contract.NewBinding(cfg.ContractAddress(), backend, backend)
	if err != nil {
		conn.Close()
		client.Close()
		return nil, err
	}
	binding.SetMetricsManager(metricsManager)

	env := &writeEnv{
		clientEnv:  client,
		connection: conn,
		sessions:   session.NewManager(backend),
	}

	env.session, err = env.sessions.Connect(ctx, cfg.Wallet.PrivateKey)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.shell.SetAccount(env.session.Account().Hex())

	env.notifier = notification.NewNotificationManager(&notification.NotificationManagerConfig{
		NotificationTimeout: cfg.Notifications.NotificationTimeout,
		RetryAttempts:       cfg.Notifications.RetryAttempts,
		RetryDelay:          cfg.Notifications.RetryDelay,
		WebhookURL:          cfg.Notifications.WebhookURL,
	})
	env.notifier.SetMetricsManager(metricsManager)
	if err := env.notifier.Start(ctx); err != nil {
		env.Close()
		return nil, err
	}

	var notifier notification.Notifier
	if cfg.Notifications.Enabled {
		notifier = env.notifier
	}
	var txStore submission.TransactionStore
	if env.store != nil {
		txStore = env.store
	}

	env.flow = submission.NewFlow(binding, backend, env.shell, notifier, txStore, submission.Config{
		Confirmations:  cfg.Ledger.Confirmations,
		ReceiptTimeout: cfg.Ledger.ReceiptTimeout,
	})
	env.flow.SetMetricsManager(metricsManager)

	return env, nil
}

func (env *writeEnv) Close() {
	if env.notifier != nil {
		env.notifier.Stop()
	}
	env.sessions.Disconnect()
	env.connection.Close()
	env.clientEnv.Close()
}

func printReceipt(w io.Writer, r *submission.Receipt) {
	fmt.Fprintf(w, "Transaction %s confirmed in block %d (gas used %d)\n", r.TxHash, r.BlockNumber, r.GasUsed)
	if !r.Refreshed {
		fmt.Fprintln(w, "Warning: the write succeeded but the view could not be refreshed")
	}
}

func printNotices(w io.Writer, n *notification.NotificationManager) {
	for _, notice := range n.Recent(0) {
		if notice.Level == models.NotificationWarning {
			fmt.Fprintf(w, "! %s: %s\n", notice.Title, notice.Message)
		}
	}
}

// hackathonsCmd groups hackathon commands
var hackathonsCmd = &cobra.Command{
	Use:     "hackathons",
	Aliases: []string{"hackathon", "h"},
	Short:   "Browse and create hackathons",
}

var listHackathonsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all hackathons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		cached, _ := cmd.Flags().GetBool("cached")
		if cached {
			err = env.shell.LoadCached(cmd.Context())
		} else {
			err = env.shell.RefreshHackathons(cmd.Context())
		}
		if err != nil {
			return err
		}

		state := env.shell.Snapshot()
		return view.RenderHackathons(cmd.OutOrStdout(), state.Hackathons, time.Now())
	},
}

var showHackathonCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a hackathon and its projects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		cached, _ := cmd.Flags().GetBool("cached")
		if cached {
			err = env.shell.SelectCached(cmd.Context(), args[0])
		} else {
			err = env.shell.SelectHackathon(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		return view.RenderDetail(cmd.OutOrStdout(), env.shell.Snapshot().Selected, time.Now())
	},
}

var winnerCmd = &cobra.Command{
	Use:   "winner <hackathon-id>",
	Short: "Show the winning project of a hackathon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		winner, err := env.api.GetWinner(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return view.RenderWinner(cmd.OutOrStdout(), winner)
	},
}

var createHackathonCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a hackathon funded with a prize",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		days, _ := cmd.Flags().GetInt64("duration")
		prize, _ := cmd.Flags().GetString("prize")

		input := submission.CreateHackathonInput{
			Title:        title,
			Description:  description,
			DurationDays: days,
			Prize:        prize,
		}
		if _, err := input.Validate(); err != nil {
			return err
		}

		env, err := newWriteEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		view.RenderHeader(out, env.session.Account().Hex())
		fmt.Fprintln(out, "Creating hackathon, waiting for confirmation...")

		receipt, err := env.flow.CreateHackathon(cmd.Context(), env.session, input)
		if err != nil {
			return err
		}

		printReceipt(out, receipt)
		printNotices(out, env.notifier)
		if receipt.Refreshed {
			return view.RenderHackathons(out, env.shell.Snapshot().Hackathons, time.Now())
		}
		return nil
	},
}

// projectsCmd groups project commands
var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project", "p"},
	Short:   "Show and submit projects",
}

var showProjectCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		project, err := env.api.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return view.RenderProject(cmd.OutOrStdout(), project)
	},
}

var submitProjectCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a project to a hackathon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hackathonID, _ := cmd.Flags().GetString("hackathon")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		repo, _ := cmd.Flags().GetString("repo")
		demo, _ := cmd.Flags().GetString("demo")

		env, err := newWriteEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		view.RenderHeader(out, env.session.Account().Hex())

		// Select first so the refresh after confirmation updates the details view
		if err := env.shell.SelectHackathon(cmd.Context(), hackathonID); err != nil {
			return err
		}
		if err := env.shell.RequirePhase(models.PhaseSubmission); err != nil {
			return err
		}
		fmt.Fprintln(out, "Submitting project, waiting for confirmation...")

		receipt, err := env.flow.SubmitProject(cmd.Context(), env.session, submission.SubmitProjectInput{
			HackathonID: hackathonID,
			Title:       title,
			Description: description,
			RepoURL:     repo,
			DemoURL:     demo,
		})
		if err != nil {
			return err
		}

		printReceipt(out, receipt)
		printNotices(out, env.notifier)
		if receipt.Refreshed {
			return view.RenderDetail(out, env.shell.Snapshot().Selected, time.Now())
		}
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <project-id>",
	Short: "Vote for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hackathonID, _ := cmd.Flags().GetString("hackathon")

		env, err := newWriteEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		view.RenderHeader(out, env.session.Account().Hex())

		if hackathonID == "" {
			// Find the hackathon the project belongs to
			project, err := env.api.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			hackathonID = project.HackathonID
		}
		if err := env.shell.SelectHackathon(cmd.Context(), hackathonID); err != nil {
			return err
		}
		if err := env.shell.RequirePhase(models.PhaseVoting); err != nil {
			return err
		}
		fmt.Fprintln(out, "Voting, waiting for confirmation...")

		receipt, err := env.flow.VoteForProject(cmd.Context(), env.session, args[0], hackathonID)
		if err != nil {
			return err
		}

		printReceipt(out, receipt)
		printNotices(out, env.notifier)
		if receipt.Refreshed {
			return view.RenderDetail(out, env.shell.Snapshot().Selected, time.Now())
		}
		return nil
	},
}

// txCmd groups the local transaction history
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Local history of submitted transactions",
}

var listTxCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		if env.store == nil {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Transaction history needs storage enabled")
		}

		account, _ := cmd.Flags().GetString("account")
		kinds, _ := cmd.Flags().GetStringSlice("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := storage.TransactionFilter{
			Kinds:  kinds,
			Status: models.TransactionStatus(strings.ToLower(status)),
			Limit:  limit,
		}
		if account != "" {
			if !utils.IsValidAddress(account) {
				return utils.NewAppError(utils.ErrCodeInvalidInput, "Invalid account address", account)
			}
			filter.Account = common.HexToAddress(account).Hex()
		}

		records, err := env.store.GetTransactions(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return view.RenderTransactions(cmd.OutOrStdout(), records)
	},
}

// addClientCommands registers the read and write commands on root
func addClientCommands(root *cobra.Command) {
	listHackathonsCmd.Flags().Bool("cached", false, "read the last snapshot instead of the API")
	showHackathonCmd.Flags().Bool("cached", false, "read the last snapshot instead of the API")

	createHackathonCmd.Flags().String("title", "", "hackathon title")
	createHackathonCmd.Flags().String("description", "", "hackathon description")
	createHackathonCmd.Flags().Int64("duration", 7, "submission window in days")
	createHackathonCmd.Flags().String("prize", "", "prize pool in ETH, e.g. 0.5")
	createHackathonCmd.MarkFlagRequired("title")
	createHackathonCmd.MarkFlagRequired("prize")

	submitProjectCmd.Flags().String("hackathon", "", "hackathon id")
	submitProjectCmd.Flags().String("title", "", "project title")
	submitProjectCmd.Flags().String("description", "", "project description")
	submitProjectCmd.Flags().String("repo", "", "repository URL")
	submitProjectCmd.Flags().String("demo", "", "demo URL (optional)")
	submitProjectCmd.MarkFlagRequired("hackathon")
	submitProjectCmd.MarkFlagRequired("title")
	submitProjectCmd.MarkFlagRequired("repo")

	voteCmd.Flags().String("hackathon", "", "hackathon the project belongs to (looked up when omitted)")

	listTxCmd.Flags().String("account", "", "only transactions sent by this account")
	listTxCmd.Flags().StringSlice("kind", nil, "only these kinds (create_hackathon, submit_project, vote)")
	listTxCmd.Flags().String("status", "", "only this status (pending, confirmed, failed)")
	listTxCmd.Flags().Int("limit", 20, "maximum number of rows")

	hackathonsCmd.AddCommand(listHackathonsCmd, showHackathonCmd, winnerCmd, createHackathonCmd)
	projectsCmd.AddCommand(showProjectCmd, submitProjectCmd)
	txCmd.AddCommand(listTxCmd)

	root.AddCommand(hackathonsCmd, projectsCmd, voteCmd, txCmd)
}
