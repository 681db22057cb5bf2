package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autoreply-project/internal/adapters/messaging"
	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/logging"
)

var (
	webhookURL string
	formatFlag string
	tokenFlag  string
	fromUser   string
	toUser     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "wechat-sim",
	Short: "Send simulated WeChat messages to the autoreply webhook",
	Long: `wechat-sim delivers text and mini-program card messages to a running
autoreply webhook, signed and encoded the way the platform sends them, and
prints the passive reply it answers with.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&webhookURL, "url", envOr("WEBHOOK_URL", "http://localhost:3000/webhook"), "webhook endpoint")
	flags.StringVar(&formatFlag, "format", "xml", "body format, xml or json")
	flags.StringVar(&tokenFlag, "token", os.Getenv("WECHAT_TOKEN"), "token used to sign requests")
	flags.StringVar(&fromUser, "from", "o_sim_user_0001", "sender open id")
	flags.StringVar(&toUser, "to", "gh_sim_account", "official account id")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log request payloads")

	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(verifyCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFormat(s string) (wechat.Format, error) {
	switch s {
	case "xml":
		return wechat.FormatXML, nil
	case "json":
		return wechat.FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown format %q, want xml or json", s)
	}
}

func newLogger() *slog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Format = "text"
	cfg.Output = os.Stderr
	if verbose {
		cfg.Level = slog.LevelDebug
	} else {
		cfg.Level = slog.LevelWarn
	}
	return logging.New(cfg)
}

func newClient() (*messaging.Client, error) {
	format, err := parseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	return messaging.NewClient(webhookURL, format, tokenFlag, newLogger()), nil
}

// newMessage fills the envelope shared by every simulated message.
func newMessage(msgType string) *domain.Message {
	return &domain.Message{
		ToUserName:   toUser,
		FromUserName: fromUser,
		CreateTime:   strconv.FormatInt(time.Now().Unix(), 10),
		MsgType:      msgType,
	}
}

func newMsgID() string {
	return strconv.FormatUint(uint64(uuid.New().ID()), 10)
}

func printReply(cmd *cobra.Command, reply *domain.Reply) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "to:      %s\n", reply.ToUserName)
	fmt.Fprintf(out, "from:    %s\n", reply.FromUserName)
	fmt.Fprintf(out, "time:    %s\n", time.Unix(reply.CreateTime, 0).Format(time.RFC3339))
	fmt.Fprintf(out, "type:    %s\n", reply.MsgType)
	fmt.Fprintf(out, "content:\n%s\n", reply.Content)
}
