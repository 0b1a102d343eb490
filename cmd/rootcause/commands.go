package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kalambet/rootcause/internal/api"
	"github.com/kalambet/rootcause/internal/config"
	"github.com/kalambet/rootcause/internal/pipeline"
	"github.com/kalambet/rootcause/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask one question and print the answer",
	Long: `Ask one question and print the answer.

Examples:
  rootcause ask "What are the main escalation patterns?"
  rootcause ask --suggestion 3
  rootcause ask --server http://127.0.0.1:4000 "root cause of billing failures"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		n, _ := cmd.Flags().GetInt("suggestion")
		serverURL, _ := cmd.Flags().GetString("server")

		if n == 0 && strings.TrimSpace(query) == "" {
			return eris.New("a query or --suggestion is required")
		}

		if serverURL != "" {
			client := newAPIClient(serverURL, cfg.Server.Token)
			resp, err := client.ask(cmd.Context(), api.AskRequest{Query: query, Suggestion: n})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
			return nil
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := pipeline.NewSession(a.assistant)
		var ans pipeline.Answer
		if n != 0 {
			ans, err = s.AskSuggestion(ctx, n)
		} else {
			ans, err = s.Ask(ctx, query)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
		return nil
	},
}

func init() {
	askCmd.Flags().String("server", "", "ask a running server at this URL instead of loading locally")
	askCmd.Flags().Int("suggestion", 0, "ask suggested question N (see `rootcause chat` /suggest)")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset aggregates by department and industry",
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("json")
		serverURL, _ := cmd.Flags().GetString("server")

		var d storage.Dashboard
		if serverURL != "" {
			var err error
			if d, err = newAPIClient(serverURL, cfg.Server.Token).stats(cmd.Context(), top); err != nil {
				return err
			}
		} else {
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if d, err = a.store.Dashboard(cmd.Context()); err != nil {
				return err
			}
			d = d.Top(top)
		}

		if asJSON {
			return writeIndentedJSON(cmd.OutOrStdout(), d)
		}
		renderDashboard(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("top", 0, "show at most N departments and industries (0 for all)")
	statsCmd.Flags().Bool("json", false, "print JSON")
	statsCmd.Flags().String("server", "", "read stats from a running server at this URL")
}

func renderDashboard(w io.Writer, d storage.Dashboard) {
	printStatus(w, "Records", "%d", d.Summary.Records)
	printStatus(w, "Avg sentiment", "%.3f", d.Summary.AverageSentiment)
	printStatus(w, "Avg response time", "%.1fs", d.Summary.AverageResponseTime)

	renderGroups(w, "Department", d.Departments)
	renderGroups(w, "Industry", d.Industries)
}

func renderGroups(w io.Writer, title string, groups []storage.GroupStats) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, title))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tRECORDS\tAVG RESPONSE\tAVG SENTIMENT\tESCALATIONS")
	for _, g := range groups {
		fmt.Fprintf(tw, "  %s\t%d\t%.1fs\t%.3f\t%d\n", g.Name, g.Records, g.AverageResponseTime, g.AverageSentiment, g.Escalations)
	}
	tw.Flush()
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what was loaded and whether reasoning is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		serverURL, _ := cmd.Flags().GetString("server")

		var st pipeline.Status
		if serverURL != "" {
			var err error
			if st, err = newAPIClient(serverURL, cfg.Server.Token).status(cmd.Context()); err != nil {
				return err
			}
		} else {
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			st = a.assistant.Status()
		}

		if asJSON {
			return writeIndentedJSON(cmd.OutOrStdout(), st)
		}
		renderStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print JSON")
	statusCmd.Flags().String("server", "", "query a running server at this URL")
}

func renderStatus(w io.Writer, st pipeline.Status) {
	ds := st.Dataset
	printStatus(w, "Dataset", "%s (%d records, %d dropped)", ds.Source, ds.Records, ds.Normalize.Dropped())
	if dropped := ds.Normalize.Dropped(); dropped > 0 {
		printStatus(w, "  dropped", "%d bad timestamp, %d bad response time, %d missing sentiment",
			ds.Normalize.BadTimestamp, ds.Normalize.BadResponseTime, ds.Normalize.MissingSentiment)
	}
	printStatus(w, "Audit PDF", "%s", documentLine(st.Audit))
	printStatus(w, "Ops report", "%s", documentLine(st.Ops))

	r := st.Reasoning
	if r.Available {
		printStatus(w, "Reasoning", "%s (%s)", r.Provider, r.Model)
	} else {
		printStatus(w, "Reasoning", "%s", colorize(colorRed, fmt.Sprintf("unavailable: %s", r.Reason)))
	}
}

func documentLine(d pipeline.DocumentStatus) string {
	switch {
	case d.Error != "":
		return fmt.Sprintf("%s %s (%s)", d.Path, d.Status, d.Error)
	case d.Chars == 0:
		return fmt.Sprintf("%s %s (empty)", d.Path, d.Status)
	default:
		return fmt.Sprintf("%s %s (%d chars)", d.Path, d.Status, d.Chars)
	}
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		for _, k := range config.SecretKeys() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k), secretLabel(k))
		}
		return nil
	},
}

func secretLabel(key string) string {
	var set bool
	switch key {
	case "reasoning.api_key":
		set = cfg.Reasoning.APIKey != ""
	case "server.token":
		set = cfg.Server.Token != ""
	}
	if set {
		return "(set)"
	}
	return "(not set)"
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nKeys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> [value]",
	Short: "Store a secret in the platform secret store",
	Long: "Store a secret in the platform secret store. The value is read from stdin when omitted.\n\nKeys: " +
		strings.Join(config.SecretKeys(), ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return eris.Wrap(err, "reading secret")
			}
			value = strings.TrimSpace(string(data))
		}
		if value == "" {
			return eris.Errorf("empty value for %s", key)
		}

		if err := config.SetSecret(key, value); err != nil {
			return err
		}

		printSuccess("Stored %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rootcause version %s\n", version)
	},
}
