package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/eliseohh/reviewbot/internal/config"
	"github.com/eliseohh/reviewbot/internal/homework"
)

// probe performs one fetch-validate-parse pass and prints the result
// without touching Telegram.
func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	since := flag.Duration("since", 30*24*time.Hour, "look back this far for status changes")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("❌ config: %v\n", err)
		os.Exit(1)
	}
	if cfg.PracticumToken == "" {
		fmt.Println("❌ PRACTICUM_TOKEN is not set")
		os.Exit(1)
	}

	client := homework.NewClient(cfg.Endpoint, cfg.PracticumToken, cfg.RequestTimeout)
	from := time.Now().Add(-*since).Unix()

	resp, err := client.GetAPIAnswer(context.Background(), from)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	hws, err := homework.CheckResponse(resp)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	if date, ok := homework.CurrentDate(resp); ok {
		fmt.Printf("current_date: %s\n", time.Unix(date, 0).Format(time.RFC3339))
	}
	if len(hws) == 0 {
		fmt.Printf("✔ No status changes since %s\n", time.Unix(from, 0).Format(time.RFC3339))
		return
	}
	for _, hw := range hws {
		msg, err := homework.ParseStatus(hw)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		fmt.Printf("✔ %s\n", msg)
		if hw.ReviewerComment != "" {
			fmt.Printf("   reviewer: %s\n", hw.ReviewerComment)
		}
	}
}
