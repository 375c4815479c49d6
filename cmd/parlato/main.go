package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/parlato/pkg/api"
	"github.com/go-go-golems/parlato/pkg/conversation"
	"github.com/go-go-golems/parlato/pkg/events"
	"github.com/go-go-golems/parlato/pkg/store"
)

const streamTopic = "chat"

var rootCmd = &cobra.Command{
	Use:   "parlato",
	Short: "Chat workspace client",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			level = zerolog.InfoLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

func buildManager() (*conversation.ManagerImpl, error) {
	options := []conversation.ManagerOption{
		conversation.WithKV(store.NewFileKV(viper.GetString("state-file"))),
	}

	baseURL := viper.GetString("base-url")
	if baseURL != "" {
		client := api.NewClient(baseURL, api.WithToken(viper.GetString("token")))
		options = append(options,
			conversation.WithBackend(client),
			conversation.WithStep(api.NewBackendStep(client)),
			conversation.WithUser(&conversation.User{ID: viper.GetString("user-id")}),
		)
	}

	return conversation.NewManager(options...), nil
}

func runChat(ctx context.Context) error {
	manager, err := buildManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	// Deltas must print in publish order; block each publish until the
	// printer acks so the gochannel transport cannot reorder them.
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	manager.PublisherManager().SubscribePublisher(streamTopic, pubSub)

	messages, err := pubSub.Subscribe(ctx, streamTopic)
	if err != nil {
		return err
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("mode: %s\n", manager.Mode())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		printStream(messages)
		return nil
	})
	eg.Go(func() error {
		// Closing the pub/sub drains the subscription channel so the
		// printer goroutine terminates with us.
		defer func() {
			_ = pubSub.Close()
		}()
		return readLoop(ctx, manager)
	})
	return eg.Wait()
}

func readLoop(ctx context.Context, manager conversation.Manager) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if quit := dispatch(ctx, manager, line); quit {
				return nil
			}
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

func printStream(messages <-chan *message.Message) {
	for msg := range messages {
		e, err := events.NewEventFromJSON(msg.Payload)
		msg.Ack()
		if err != nil {
			continue
		}
		switch e_ := e.(type) {
		case *events.EventPartialCompletion:
			fmt.Print(e_.Delta)
		case *events.EventFinal:
			fmt.Println()
		case *events.EventInterrupt:
			fmt.Println(" [interrupted]")
		case *events.EventError:
			fmt.Printf(" [error: %s]\n", e_.ErrorString)
		}
	}
}

func dispatch(ctx context.Context, manager conversation.Manager, line string) bool {
	if !strings.HasPrefix(line, "/") {
		manager.SendMessage(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/quit":
		return true
	case "/workspaces":
		state := manager.State()
		for _, w := range state.Workspaces {
			marker := " "
			if w.ID == state.ActiveWorkspaceID {
				marker = "*"
			}
			fmt.Printf("%s %s  %s (%d chats)\n", marker, w.ID, w.Name, len(w.Chats))
		}
	case "/chats":
		state := manager.State()
		if w := state.ActiveWorkspace(); w != nil {
			for _, c := range w.Chats {
				marker := " "
				if c.ID == state.ActiveChatID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s (%d messages)\n", marker, c.ID, c.Title, len(c.Messages))
			}
		}
	case "/workspace":
		manager.SelectWorkspace(arg)
	case "/chat":
		manager.SelectChat(arg)
	case "/new-workspace":
		manager.CreateWorkspace(ctx, arg)
	case "/new-chat":
		manager.CreateChat(ctx)
	case "/rename-chat":
		if len(fields) >= 3 {
			manager.RenameChat(ctx, fields[1], strings.Join(fields[2:], " "))
		}
	case "/delete-chat":
		manager.DeleteChat(ctx, arg)
	case "/delete-workspace":
		manager.DeleteWorkspace(ctx, arg)
	case "/refresh":
		manager.Refresh(ctx)
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
	return false
}

func defaultStateFile() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return configDir + "/parlato/state.json"
}

func main() {
	rootCmd.PersistentFlags().String("base-url", "", "Workspace backend base URL (local-only mode when empty)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for the backend")
	rootCmd.PersistentFlags().String("user-id", "", "User identity for remote sessions")
	rootCmd.PersistentFlags().String("state-file", defaultStateFile(), "Path of the local state snapshot")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
	viper.SetEnvPrefix("PARLATO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
