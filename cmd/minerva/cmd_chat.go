package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/internal/dialogue"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Opens an interactive session against the dialogue engine, the same one the
transports use. Type "salir" or press Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return chatLoop(cmd.Context(), a.Engine, chatUser, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "local", "session id used for the conversation")
}

// chatEngine is the part of the engine the REPL needs.
type chatEngine interface {
	HandleMessage(ctx context.Context, userID, text string, now time.Time) (dialogue.Reply, error)
	Menu() string
}

func chatLoop(ctx context.Context, engine chatEngine, user string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	userID := "cli:" + user
	ctx = logger.WithRequestMeta(ctx, userID, "cli")

	prompt := color.New(color.FgGreen, color.Bold)
	state := color.New(color.FgCyan)
	fail := color.New(color.FgRed)

	fmt.Fprintln(out, renderHTML(engine.Menu()))
	scanner := bufio.NewScanner(in)
	for {
		prompt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(text), "salir") {
			return nil
		}
		reply, err := engine.HandleMessage(ctx, userID, text, time.Now())
		if err != nil {
			fail.Fprintf(out, "error: %v\n", err)
			continue
		}
		state.Fprintf(out, "[%s]\n", reply.State)
		fmt.Fprintln(out, renderHTML(reply.Response))
	}
}

var (
	anchorRe = regexp.MustCompile(`<a href="([^"]*)">([^<]*)</a>`)
	tagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// renderHTML turns the Telegram HTML subset used by the catalog into plain terminal text.
func renderHTML(s string) string {
	s = anchorRe.ReplaceAllString(s, "$2 ($1)")
	return tagRe.ReplaceAllString(s, "")
}
