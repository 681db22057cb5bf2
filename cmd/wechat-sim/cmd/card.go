package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoreply-project/internal/domain"
)

var (
	cardTitle    string
	cardPagePath string
	cardAppID    string
	cardThumbURL string
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Send a mini-program page card",
	Long:  "Send a mini-program page card and print the coupon reply built for it.",
	RunE:  runCard,
}

func init() {
	cardCmd.Flags().StringVar(&cardTitle, "title", "商品", "card title")
	cardCmd.Flags().StringVar(&cardPagePath, "page-path", "pages/shop/index?poiid=100001", "mini-program page path")
	cardCmd.Flags().StringVar(&cardAppID, "app-id", "wx_sim_app", "mini-program app id")
	cardCmd.Flags().StringVar(&cardThumbURL, "thumb-url", "", "thumbnail url")
}

func runCard(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	msg := newMessage(string(domain.KindMiniprogramPage))
	msg.Card = &domain.MiniprogramCard{
		Title:    cardTitle,
		AppID:    cardAppID,
		PagePath: cardPagePath,
		ThumbURL: cardThumbURL,
		MsgID:    newMsgID(),
	}

	reply, err := client.Send(cmd.Context(), msg)
	if err != nil {
		return fmt.Errorf("send card: %w", err)
	}
	printReply(cmd, reply)
	return nil
}
