// Package main provides a crowd load test for a channel: many viewers hold
// the live event feed open while some of them chat and donate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"dumdummies/internal/client"
	"dumdummies/internal/notifications"
	"dumdummies/internal/reconciler"

	"github.com/joho/godotenv"
)

// Metrics tracks the run.
type Metrics struct {
	Connected      int64
	Reconnects     int64
	ChatsSent      int64
	DonationsSent  int64
	EventsReceived int64
	Errors         int64
}

var metrics Metrics

func main() {
	_ = godotenv.Load()

	api := flag.String("api", "http://localhost:8375", "API base URL")
	channelID := flag.String("channel", "", "Channel to load (required)")
	email := flag.String("email", "", "Account used for chat and donations")
	password := flag.String("password", "", "Password for -email")
	viewers := flag.Int("viewers", 50, "Concurrent event-feed connections")
	talkers := flag.Int("talkers", 5, "How many viewers also chat and donate")
	interval := flag.Duration("interval", 5*time.Second, "Time between a talker's actions")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	if *channelID == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Printf("🚀 Starting crowd test")
	log.Printf("Target: %s channel %s", *api, *channelID)
	log.Printf("Viewers: %d (talkers: %d)", *viewers, *talkers)
	log.Printf("Duration: %v", *duration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := client.NewAPI(*api, "")
	if *email != "" {
		if _, err := rest.Login(ctx, *email, *password); err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
		log.Printf("✅ Logged in as %s", *email)
	} else if *talkers > 0 {
		log.Printf("⚠️  No -email given, talkers will only watch")
		*talkers = 0
	}

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < *viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			watch(runCtx, *api, *channelID)
		}()

		if i < *talkers {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				talk(runCtx, rest, *channelID, id, *interval)
			}(i)
		}
		time.Sleep(20 * time.Millisecond)
	}

	<-runCtx.Done()
	if ctx.Err() != nil {
		log.Println("🛑 Interrupted")
	} else {
		log.Println("⏱️  Test duration reached")
	}
	log.Println("Waiting for viewers to disconnect...")
	wg.Wait()

	printMetrics()
}

// watch holds one anonymous event feed open until ctx ends.
func watch(ctx context.Context, api, channelID string) {
	broker := notifications.NewBroker()
	defer broker.SubscribeAll(func(notifications.Event) {
		atomic.AddInt64(&metrics.EventsReceived, 1)
	})()

	stream := client.NewEventStream(api, "", channelID, broker)
	seen := false
	stream.OnStatus = func(connected bool, err error) {
		switch {
		case connected && !seen:
			seen = true
			atomic.AddInt64(&metrics.Connected, 1)
		case connected:
			atomic.AddInt64(&metrics.Reconnects, 1)
		case err != nil:
			atomic.AddInt64(&metrics.Errors, 1)
		}
	}
	_ = stream.Run(ctx)
}

// talk alternates chat messages and one-dollar donations.
func talk(ctx context.Context, api *client.API, channelID string, id int, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var err error
		if n%2 == 0 {
			_, err = api.SendChatMessage(ctx, reconciler.ChatRequest{
				ChannelID: channelID,
				Text:      fmt.Sprintf("crowd test message %d from viewer %d", n, id),
			})
			if err == nil {
				atomic.AddInt64(&metrics.ChatsSent, 1)
			}
		} else {
			_, err = api.CreateDonation(ctx, reconciler.DonationRequest{
				ChannelID:   channelID,
				AmountCents: 100,
				Message:     "crowd test",
			})
			if err == nil {
				atomic.AddInt64(&metrics.DonationsSent, 1)
			}
		}
		if err != nil && ctx.Err() == nil {
			atomic.AddInt64(&metrics.Errors, 1)
			log.Printf("viewer %d: %v", id, err)
		}
	}
}

func printMetrics() {
	log.Println("\n📊 Results")
	log.Println("==========")
	log.Printf("Viewers connected: %d", atomic.LoadInt64(&metrics.Connected))
	log.Printf("Reconnects: %d", atomic.LoadInt64(&metrics.Reconnects))
	log.Printf("Chats sent: %d", atomic.LoadInt64(&metrics.ChatsSent))
	log.Printf("Donations sent: %d", atomic.LoadInt64(&metrics.DonationsSent))
	log.Printf("Events received: %d", atomic.LoadInt64(&metrics.EventsReceived))
	log.Printf("Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
