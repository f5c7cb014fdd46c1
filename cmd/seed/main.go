// Command seed fills the database with demo channels, challenges and chat.
package main

import (
	"context"
	"flag"
	"log"

	"dumdummies/internal/config"
	"dumdummies/internal/database"
	"dumdummies/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numChannels := flag.Int("channels", defaults.Channels, "Number of channels (each gets its own creator)")
	numChallenges := flag.Int("challenges", defaults.ChallengesPerChannel, "Challenge requests per channel")
	numActive := flag.Int("active", defaults.ActivePerChannel, "Approved challenges per channel")
	numDonations := flag.Int("donations", defaults.DonationsPerChannel, "Donations per channel")
	numMessages := flag.Int("messages", defaults.MessagesPerChannel, "Chat messages per channel")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d channels, clean=%v\n", *numUsers, *numChannels, *shouldClean)

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.NewSeeder(db).Seed(context.Background(), seed.Options{
		Users:                *numUsers,
		Channels:             *numChannels,
		ChallengesPerChannel: *numChallenges,
		ActivePerChannel:     *numActive,
		DonationsPerChannel:  *numDonations,
		MessagesPerChannel:   *numMessages,
		Clean:                *shouldClean,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	for i, ch := range res.Channels {
		log.Printf("📺 %s (%s) creator=%s", ch.Title, ch.ID, res.Users[i].Email)
	}
	log.Printf("✨ All done! %d users, %d donations, %d chat messages.", len(res.Users), res.Donations, res.Messages)
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
