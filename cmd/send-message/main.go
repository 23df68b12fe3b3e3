package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/autoreply/wa-autoreply-bridge/internal/infra/log"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/whatsapp"
)

func main() {
	_ = godotenv.Load()

	bridgeURL := os.Getenv("WA_BRIDGE_URL")
	if bridgeURL == "" {
		fmt.Println("Error: WA_BRIDGE_URL must be set")
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <chat_jid> <message>")
		os.Exit(1)
	}

	chatID := os.Args[1]
	message := os.Args[2]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := whatsapp.NewClient(bridgeURL, log.NewStderrLogger(os.Getenv("APP_ENV")))
	if err := client.Dial(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	msgID, err := client.Send(ctx, chatID, message, "")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Message sent successfully! (id %s)\n", msgID)
}
