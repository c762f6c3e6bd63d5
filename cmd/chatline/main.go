package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/compute/metadata"
	"github.com/joho/godotenv"

	"github.com/chatline/chatline"
	"github.com/chatline/chatline/auth"
	"github.com/chatline/chatline/chat"
	"github.com/chatline/chatline/config"
	"github.com/chatline/chatline/log"
	"github.com/chatline/chatline/logger"
)

// CHATLINE_PROJECT_ID=... CHATLINE_API_KEY=... go run ./cmd/chatline -with <peer-uid>
func main() {
	anonymous := flag.Bool("anonymous", false, "sign in anonymously")
	email := flag.String("email", "", "email for password sign-in")
	password := flag.String("password", "", "password for sign-in")
	register := flag.Bool("register", false, "create the email identity instead of signing in")
	name := flag.String("name", "", "display name for registration")
	peer := flag.String("with", "", "peer uid to chat with; omit to list contacts")
	window := flag.Int("window", 50, "message window size, 0 for unbounded")
	flag.Parse()

	_ = godotenv.Load()

	slogger := slog.New(log.NewCloudLoggingHandler())
	ctx := log.WithLogger(context.Background(), slogger)
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.FromEnv(ctx)
	if err != nil {
		slogger.Error("config", slog.String(chatline.ErrorMsgLogField, err.Error()))
		os.Exit(1)
	}

	if metadata.OnGCE() {
		l, closeLog, err := logger.NewCloud(ctx, cfg.ProjectID)
		if err == nil {
			defer closeLog()
			ctx = logger.With(ctx, l)
		}
	}

	client, err := chatline.Open(ctx, cfg)
	if err != nil {
		slogger.Error("open", slog.String(chatline.ErrorMsgLogField, err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	session, err := signIn(ctx, client, *anonymous, *register, *email, *password, *name)
	if err != nil {
		slogger.Error("sign-in", slog.String(chatline.ErrorMsgLogField, err.Error()))
		os.Exit(1)
	}
	fmt.Printf("signed in as %s (anonymous=%v)\n", session.UID, session.Anonymous)

	if *peer == "" {
		listContacts(ctx, client)
		return
	}
	runChat(ctx, client, *peer, *window)
}

func signIn(ctx context.Context, client *chatline.Client, anonymous, register bool, email, password, name string) (*auth.Session, error) {
	switch {
	case anonymous:
		return client.SignInAnonymously(ctx)
	case register:
		return client.Register(ctx, email, password, name)
	case email != "":
		return client.SignInWithPassword(ctx, email, password)
	default:
		return nil, fmt.Errorf("pass -anonymous, -register or -email")
	}
}

func listContacts(ctx context.Context, client *chatline.Client) {
	contacts, err := client.SubscribeContacts(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer contacts.Close()

	fmt.Println("contacts (ctrl-c to quit):")
	for ev := range contacts.Events() {
		if ev.Err != nil {
			fmt.Fprintf(os.Stderr, "contacts stream: %v\n", ev.Err)
			return
		}
		fmt.Printf("--- %d users ---\n", len(ev.Items))
		for _, p := range ev.Items {
			fmt.Printf("  %s  %s\n", p.ID, p.DisplayName)
		}
	}
}

func runChat(ctx context.Context, client *chatline.Client, peer string, window int) {
	chats, err := client.Chats()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	conv, err := chats.GetOrCreate(ctx, []string{peer})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Printf("conversation %s with %s\n", conv.ID, conv.ParticipantNames[peer])

	feed := chats.SubscribeMessages(ctx, conv.ID, window)
	defer feed.Close()

	go func() {
		for ev := range feed.Events() {
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "message stream: %v\n", ev.Err)
				return
			}
			fmt.Print("\033[H\033[2J") // clear screen between snapshots
			for _, m := range chat.Chronological(ev.Items) {
				name := m.SenderName
				if m.System {
					name = "*"
				}
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), name, m.Text)
			}
			fmt.Print("> ")
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := chats.Send(ctx, conv.ID, text); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
		}
	}
}
