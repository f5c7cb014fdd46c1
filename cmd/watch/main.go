// Command watch follows a DumDummies channel from the terminal. Signed-in
// viewers can chat, donate and request challenges; the creator can approve
// them and control the stream.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"dumdummies/internal/client"
	"dumdummies/internal/notifications"
	"dumdummies/internal/observability"
	"dumdummies/internal/reconciler"
	"dumdummies/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:          "watch <channel-id>",
	Short:        "Watch a channel live: chat, donations and challenges",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runWatch,
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels",
	Args:  cobra.NoArgs,
	RunE:  runChannels,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("api", "http://localhost:8375", "API base URL")
	flags.String("token", "", "Bearer token (watch anonymously when empty)")
	flags.String("email", "", "Log in with this email instead of a token")
	flags.String("password", "", "Password for --email")
	flags.String("log-file", "", "Write logs here; discarded when empty")
	flags.String("palette", "", "YAML palette for chat colors")

	settings.SetEnvPrefix("WATCH")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	_ = settings.BindPFlags(flags)

	rootCmd.AddCommand(channelsCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging keeps log lines off the terminal the TUI is drawing on.
func setupLogging() (func(), error) {
	path := settings.GetString("log-file")
	if path == "" {
		observability.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	observability.SetLogger(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { _ = f.Close() }, nil
}

// connect builds the API client and resolves who is watching.
func connect(ctx context.Context) (*client.API, reconciler.Identity, error) {
	api := client.NewAPI(settings.GetString("api"), settings.GetString("token"))

	if email := settings.GetString("email"); email != "" {
		if _, err := api.Login(ctx, email, settings.GetString("password")); err != nil {
			return nil, reconciler.Identity{}, fmt.Errorf("login: %w", err)
		}
	}
	if api.Token == "" {
		return api, reconciler.Identity{}, nil
	}

	me, err := api.Me(ctx)
	if err != nil {
		return nil, reconciler.Identity{}, fmt.Errorf("resolve token: %w", err)
	}
	return api, reconciler.Identity{UserID: me.ID, Username: me.Username}, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	channelID := args[0]

	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, who, err := connect(ctx)
	if err != nil {
		return err
	}

	palette := reconciler.DefaultPalette()
	if path := settings.GetString("palette"); path != "" {
		if palette, err = reconciler.LoadPalette(path); err != nil {
			return err
		}
	}

	broker := notifications.NewBroker()
	bridge := tui.NewBridge()
	rec := reconciler.New(reconciler.Config{
		ChannelID: channelID,
		Identity:  who,
		Palette:   palette,
		OnToast:   bridge.Toast,
		OnChange:  bridge.Changed,
	}, api, broker, api)

	if err := rec.Mount(ctx); err != nil {
		return fmt.Errorf("load channel: %w", err)
	}
	defer rec.Unmount()

	stream := client.NewEventStream(settings.GetString("api"), api.Token, channelID, broker)
	stream.OnStatus = bridge.Status
	go func() { _ = stream.Run(ctx) }()

	p := tea.NewProgram(tui.New(rec, bridge, who.Username), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func runChannels(cmd *cobra.Command, _ []string) error {
	api := client.NewAPI(settings.GetString("api"), settings.GetString("token"))
	channels, err := api.ListChannels(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tLIVE\tVIEWERS")
	for _, ch := range channels {
		live := "no"
		if ch.IsLive {
			live = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ch.ID, ch.Title, live, ch.ViewerCount)
	}
	return w.Flush()
}
