package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/app"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/client"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/config"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/namestore"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/state"
)

func main() {
	urlFlag := flag.String("url", "", "WebSocket URL of the chat server (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	nameFlag := flag.String("name", "", "display name (overrides the saved profile)")
	flag.Parse()

	// A .env file may supply CHAT_SERVER_URL; missing files are fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		cfg.Server.URL = *urlFlag
	}

	// Bubble Tea owns the terminal; transport diagnostics go to a file
	// when requested and are discarded otherwise.
	if path := os.Getenv("CHAT_LOG_FILE"); path != "" {
		f, err := tea.LogToFile(path, "chat")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	profilePath, err := namestore.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	names, err := namestore.Open(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening profile: %v\n", err)
		os.Exit(1)
	}

	userName := *nameFlag
	if userName == "" {
		if saved, ok := names.Get(namestore.KeyUsername); ok {
			userName = saved
		}
	}

	sess := client.NewSession(client.Options{
		URL:       cfg.Server.URL,
		UserName:  userName,
		BaseDelay: cfg.Reconnect.BaseDelay,
		MaxDelay:  cfg.Reconnect.MaxDelay,
		Store:     state.New(),
		Names:     names,
	})
	defer sess.Disconnect()

	p := tea.NewProgram(app.New(sess, cfg.Typing.Debounce), tea.WithAltScreen())
	sess.Attach(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
