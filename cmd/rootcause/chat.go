package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/rootcause/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive root cause session",
	Long: `Start an interactive session. Type a question, or one of:

  /suggest   list suggested questions
  /N         ask suggested question N
  /history   show this session's conversation
  /quit      leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		printStep("Loading evidence...")
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.assistant.Status()
		printSuccess("%d interaction records loaded", st.Dataset.Records)
		if !st.Reasoning.Available {
			printWarning("reasoning unavailable: %s", st.Reasoning.Reason)
		}

		return runREPL(ctx, os.Stdin, os.Stdout, pipeline.NewSession(a.assistant))
	},
}

const analyzingStep = "Analyzing data and generating insights..."

// runREPL reads one line per query until EOF or /quit. Answers are written
// verbatim.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, s *pipeline.Session) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	fmt.Fprintln(out, "Ask about escalations, root causes or sentiment. /suggest for ideas, /quit to leave.")
	for {
		fmt.Fprint(out, colorize(colorCyan, "> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/suggest":
			printSuggestions(out)
			continue
		case line == "/history":
			printHistory(out, s.History())
			continue
		}

		query := line
		if n, ok := suggestionIndex(line); ok {
			q, ok := pipeline.Suggestion(n)
			if !ok {
				fmt.Fprintf(out, "no suggestion %d; try /suggest\n", n)
				continue
			}
			query = q
		} else if strings.HasPrefix(line, "/") {
			fmt.Fprintf(out, "unknown command %q\n", line)
			continue
		}

		fmt.Fprintln(out, colorize(colorCyan, analyzingStep))
		ans, err := s.Ask(ctx, query)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, ans.Text)
	}
}

// suggestionIndex parses "/N".
func suggestionIndex(line string) (int, bool) {
	if !strings.HasPrefix(line, "/") {
		return 0, false
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func printSuggestions(out io.Writer) {
	for i, q := range pipeline.SuggestedQuestions() {
		fmt.Fprintf(out, "  %d. %s\n", i+1, q)
	}
}

func printHistory(out io.Writer, turns []pipeline.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(out, "No conversation yet.")
		return
	}
	for _, t := range turns {
		label := "You"
		if t.Role == pipeline.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(out, "%s [%s]\n%s\n\n", colorize(colorBold, label), t.At.Format("15:04:05"), t.Content)
	}
}
