package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
)

var (
	chatSubject      string
	chatConversation string
	chatNew          bool
	chatFile         string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the AI study assistant",
}

var chatListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List conversations, most recent first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatListRun(cmd.Context())
	},
}

var chatNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new conversation and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatNewRun(cmd.Context(), strings.Join(args, " "))
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message and wait for the reply",
	Long: `Send a message to the active conversation (or --conversation) and print
the assistant's reply. A new conversation is created when none is active
or --new is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatSendRun(cmd.Context(), strings.Join(args, " "))
	},
}

var chatShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Show a conversation transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return chatShowRun(cmd.Context(), id)
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:     "delete <conversation-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return chatDeleteRun(cmd.Context(), args[0])
	},
}

var chatFlashcardsCmd = &cobra.Command{
	Use:   "flashcards [content]",
	Short: "Generate flashcards from text or a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		if chatFile != "" {
			data, err := os.ReadFile(chatFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", chatFile, err)
			}
			content = string(data)
		}
		return chatFlashcardsRun(cmd.Context(), content)
	},
}

func init() {
	chatNewCmd.Flags().StringVarP(&chatSubject, "subject", "s", "", "Subject of the conversation")
	chatSendCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Conversation ID (default: active conversation)")
	chatSendCmd.Flags().BoolVar(&chatNew, "new", false, "Start a new conversation")
	chatFlashcardsCmd.Flags().StringVarP(&chatSubject, "subject", "s", "", "Subject hint for the flashcards")
	chatFlashcardsCmd.Flags().StringVarP(&chatFile, "file", "f", "", "Read content from a file")

	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatFlashcardsCmd)
	rootCmd.AddCommand(chatCmd)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func chatListRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadConversations(ctx)
	if err := recordedError(a); err != nil {
		return err
	}

	snap := a.Snapshot()
	if len(snap.Conversations) == 0 {
		ui.Info("No conversations yet. Use 'alden chat send <message>' to start one.")
		return nil
	}

	table := ui.Table([]string{"", "ID", "Title", "Subject", "Last Message"})
	for _, c := range snap.Conversations {
		marker := ""
		if c.ID == snap.ActiveConversation {
			marker = output.Green("*")
		}
		subject := "-"
		if c.Subject != nil {
			subject = *c.Subject
		}
		table.Append([]string{
			marker,
			c.ID,
			output.Cyan(c.Title),
			subject,
			c.LastMessage.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

func chatNewRun(ctx context.Context, title string) error {
	if dryRun {
		ui.DryRunMsg("Would create conversation %q", title)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	id, err := a.CreateConversation(ctx, title, optional(chatSubject))
	if err != nil {
		return err
	}
	c, _ := a.Snapshot().Conversation(id)
	ui.Success("Created conversation %s (%s)", output.Cyan(c.Title), id)
	return nil
}

func chatSendRun(ctx context.Context, message string) error {
	if dryRun {
		ui.DryRunMsg("Would send %q", message)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadConversations(ctx)
	id := chatConversation
	if id == "" && !chatNew {
		id = a.Snapshot().ActiveConversation
	}
	if id == "" {
		id, err = a.CreateConversation(ctx, "", nil)
		if err != nil {
			return err
		}
		ui.VerboseLog("Created conversation %s", id)
	} else if id != a.Snapshot().ActiveConversation {
		a.SetActiveConversation(ctx, id)
	}

	if err := a.LoadMessages(ctx, id); err != nil {
		return err
	}
	sent := len(conversationMessages(a, id))
	if err := a.SendMessage(ctx, id, message); err != nil {
		return err
	}

	ui.VerboseLog("Waiting for reply...")
	a.Wait()
	if err := recordedError(a); err != nil {
		return err
	}

	// Messages after the existing ones and the one just sent are replies.
	msgs := conversationMessages(a, id)
	replied := false
	for i := sent + 1; i < len(msgs); i++ {
		if msgs[i].Type == models.MessageTypeAssistant {
			printMessage(msgs[i])
			replied = true
		}
	}
	if !replied {
		ui.Info("No reply yet. Check again with 'alden chat show %s'.", id)
	}
	return nil
}

func conversationMessages(a *state.Store, id string) []models.Message {
	c, ok := a.Snapshot().Conversation(id)
	if !ok {
		return nil
	}
	return c.Messages
}

func printMessage(m models.Message) {
	who := output.Green("you")
	if m.Type == models.MessageTypeAssistant {
		who = output.Cyan("aida")
	}
	fmt.Fprintf(ui.Out, "%s  %s\n%s\n\n", who, m.Timestamp.Local().Format("15:04"), m.Content)
}

func chatShowRun(ctx context.Context, id string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadConversations(ctx)
	if id == "" {
		id = a.Snapshot().ActiveConversation
	}
	if id == "" {
		return fmt.Errorf("no active conversation: pass a conversation id")
	}
	if err := a.LoadMessages(ctx, id); err != nil {
		return err
	}

	c, ok := a.Snapshot().Conversation(id)
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, state.ErrNotFound)
	}
	fmt.Fprintf(ui.Out, "%s\n\n", output.Cyan(c.Title))
	if len(c.Messages) == 0 {
		ui.Info("No messages yet.")
		return nil
	}
	for _, m := range c.Messages {
		printMessage(m)
	}
	return nil
}

func chatDeleteRun(ctx context.Context, id string) error {
	if dryRun {
		ui.DryRunMsg("Would delete conversation %s", id)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	if err := a.DeleteConversation(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted conversation %s", id)
	return nil
}

func chatFlashcardsRun(ctx context.Context, content string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	cards, err := a.GenerateFlashcards(ctx, content, optional(chatSubject))
	if err != nil {
		return err
	}
	for i, c := range cards {
		fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(fmt.Sprintf("Q%d.", i+1)), c.Question)
		fmt.Fprintf(ui.Out, "    %s\n\n", c.Answer)
	}
	return nil
}
