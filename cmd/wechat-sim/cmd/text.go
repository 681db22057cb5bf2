package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"autoreply-project/internal/domain"
)

var textCmd = &cobra.Command{
	Use:   "text <content>",
	Short: "Send a text message",
	Long:  "Send a text message and print the keyword reply.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runText,
}

func runText(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	msg := newMessage(string(domain.KindText))
	msg.Text = &domain.TextBody{Content: strings.Join(args, " "), MsgID: newMsgID()}

	reply, err := client.Send(cmd.Context(), msg)
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	printReply(cmd, reply)
	return nil
}
