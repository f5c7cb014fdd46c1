package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Users                int
	Channels             int
	ChallengesPerChannel int
	ActivePerChannel     int
	DonationsPerChannel  int
	MessagesPerChannel   int
	Clean                bool
}

// DefaultOptions seeds a small but lively demo.
func DefaultOptions() Options {
	return Options{
		Users:                12,
		Channels:             2,
		ChallengesPerChannel: 5,
		ActivePerChannel:     2,
		DonationsPerChannel:  8,
		MessagesPerChannel:   20,
		Clean:                true,
	}
}

// Result lists what was created.
type Result struct {
	Users     []models.User
	Channels  []models.Channel
	Donations int
	Messages  int
}

// Seeder writes demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll deletes every row of the application tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []interface{}{
		&models.SecurityViolation{},
		&models.Donation{},
		&models.ChatMessage{},
		&models.Challenge{},
		&models.StreamSession{},
		&models.Channel{},
		&models.User{},
	}
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range tables {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// Seed populates the database. The first users become channel creators;
// the rest act as viewers.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users < opts.Channels+1 {
		return nil, fmt.Errorf("need at least %d users for %d channels", opts.Channels+1, opts.Channels)
	}
	gofakeit.Seed(time.Now().UnixNano())

	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for i := 0; i < opts.Users; i++ {
		u, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		res.Users = append(res.Users, *u)
	}

	creators := res.Users[:opts.Channels]
	viewers := res.Users[opts.Channels:]

	for i := range creators {
		creator := &creators[i]
		channel, err := s.factory.CreateChannel(ctx, creator)
		if err != nil {
			return nil, fmt.Errorf("create channel: %w", err)
		}
		res.Channels = append(res.Channels, *channel)

		if _, err := s.factory.CreateChallenges(ctx, channel, creator, viewers, opts.ChallengesPerChannel, opts.ActivePerChannel); err != nil {
			return nil, err
		}

		for j := 0; j < opts.MessagesPerChannel; j++ {
			if _, err := s.factory.CreateMessage(ctx, channel, &viewers[j%len(viewers)]); err != nil {
				return nil, fmt.Errorf("create message: %w", err)
			}
			res.Messages++
		}
		for j := 0; j < opts.DonationsPerChannel; j++ {
			if _, err := s.factory.CreateDonation(ctx, channel, &viewers[gofakeit.Number(0, len(viewers)-1)]); err != nil {
				return nil, fmt.Errorf("create donation: %w", err)
			}
			res.Donations++
		}

		observability.GlobalLogger.InfoContext(ctx, "seeded channel",
			slog.String("channel_id", channel.ID),
			slog.String("title", channel.Title),
			slog.String("creator", creator.Username),
		)
	}
	return res, nil
}
