package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
)

func main() {
	if err := run(); err != nil {
		log.Printf("sse_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:6687/events", "SSE endpoint")
	secret := flag.String("secret", "", "JWT secret shared with the server")
	userID := flag.Uint64("user", 1, "user id to subscribe as")
	issuer := flag.String("issuer", "chat_server", "JWT issuer")
	audience := flag.String("audience", "chat_web", "JWT audience")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	token, err := auth.GenerateToken(&auth.JWTConfig{
		Secret:   []byte(*secret),
		Issuer:   *issuer,
		Audience: *audience,
		TTL:      time.Hour,
	}, *userID, "smoke", "smoke@example.com")
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	streamURL := *addr + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	log.Printf("connected as user %d, waiting for events", *userID)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fmt.Println(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
