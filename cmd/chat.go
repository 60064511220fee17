package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/internal/tui"
	"github.com/spf13/cobra"
)

var (
	chatExportFormat string
	chatExportDir    string

	askFormat string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive assistant",
	Long: `Open a full-screen chat with the Sahayak assistant.

Logged-in users get answers tailored to their profile; otherwise the public
assistant is used. Press ctrl+e or type /export to save the transcript,
/clear to start over and esc to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.Run(cmd.Context(), a.store, tui.Options{
			ExportFormat: chatExportFormat,
			ExportDir:    chatExportDir,
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the assistant one question",
	Example: `  sahayak ask "Which schemes help small farmers buy seeds?"
  sahayak ask --format json "PM-KISAN eligibility"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question cannot be empty")
		}
		if askFormat != "text" && askFormat != "json" {
			return fmt.Errorf("unsupported format %q (use text or json)", askFormat)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		_ = internal.ShowProgress(cmd.Context(), "Asking Sahayak", func() error {
			a.store.SendChatMessage(cmd.Context(), question)
			return nil
		})

		transcript := a.store.State().Transcript
		if len(transcript) == 0 || transcript[len(transcript)-1].Sender != internal.SenderAI {
			return errors.New("no reply received")
		}
		reply := transcript[len(transcript)-1]

		out := cmd.OutOrStdout()
		if askFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(transcript)
		}
		fmt.Fprintln(out, reply.Text)
		if reply.Text == internal.ChatFallbackText {
			return errors.New("the assistant is unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd, askCmd)

	chatCmd.Flags().StringVarP(&chatExportFormat, "export-format", "f", "md", "Transcript export format: jsonl, md, yaml, or json")
	chatCmd.Flags().StringVar(&chatExportDir, "export-dir", ".", "Directory for exported transcripts")

	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or json")
}
