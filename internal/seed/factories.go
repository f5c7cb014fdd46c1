// Package seed creates demo data for development and testing. Every row is
// written through the services so challenge totals and chat rows stay
// consistent with what the API would produce.
package seed

import (
	"context"
	"fmt"
	"strings"

	"dumdummies/internal/models"
	"dumdummies/internal/reconciler"
	"dumdummies/internal/repository"
	"dumdummies/internal/security"
	"dumdummies/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "DumDummies123!"

var challengeTemplates = []string{
	"Eat a Carolina Reaper",
	"Ice bath for five minutes",
	"Shave one eyebrow",
	"Chug a bottle of hot sauce",
	"Sing the anthem in a dinosaur suit",
	"Lick a 9V battery",
	"Dye hair neon green",
	"Eat a spoonful of cinnamon",
	"Wear a clown wig for a week",
	"Cold call grandma and rap",
	"Wax both legs live",
	"Eat a raw onion like an apple",
}

// Factory builds domain entities through the services.
type Factory struct {
	auth       *service.AuthService
	channels   *service.ChannelService
	gate       *security.Gate
	challenges *service.ChallengeService
	donations  *service.DonationService
	chat       *service.ChatService
	seq        int
}

// NewFactory creates a Factory bound to db. Events are not published.
func NewFactory(db *gorm.DB) *Factory {
	users := repository.NewUserRepository(db)
	channels := repository.NewChannelRepository(db)
	violations := repository.NewSecurityRepository(db)
	gate := security.NewGate(channels, violations)

	return &Factory{
		auth:       service.NewAuthService(users),
		channels:   service.NewChannelService(channels, violations, gate, nil),
		gate:       gate,
		challenges: service.NewChallengeService(repository.NewChallengeRepository(db), channels, gate, nil),
		donations:  service.NewDonationService(repository.NewDonationRepository(db), channels, users, nil),
		chat:       service.NewChatService(repository.NewChatRepository(db), channels, users, nil),
	}
}

// CreateUser signs up a user with a fake handle and DemoPassword.
func (f *Factory) CreateUser(ctx context.Context) (*models.User, error) {
	f.seq++
	handle := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, gofakeit.Username())
	if len(handle) > 20 {
		handle = handle[:20]
	}
	username := fmt.Sprintf("%s%d", handle, f.seq)

	return f.auth.Signup(ctx, service.SignupInput{
		Username: username,
		Email:    strings.ToLower(username) + "@dumdummies.test",
		Password: DemoPassword,
	})
}

// CreateChannel creates a channel owned by creator.
func (f *Factory) CreateChannel(ctx context.Context, creator *models.User) (*models.Channel, error) {
	channel, err := f.channels.Create(ctx, service.CreateChannelInput{
		Title:       strings.ToUpper(gofakeit.HipsterWord()) + " " + gofakeit.RandomString([]string{"NIGHT", "MARATHON", "MADNESS", "STREAM"}),
		Description: gofakeit.Sentence(10),
	})
	if err != nil {
		return nil, err
	}
	if _, err := f.gate.Claim(ctx, channel.ID, creator.ID); err != nil {
		return nil, err
	}
	return f.channels.Get(ctx, channel.ID)
}

// CreateChallenges requests n distinct challenges and approves the first
// active of them with a random target.
func (f *Factory) CreateChallenges(ctx context.Context, channel *models.Channel, creator *models.User, viewers []models.User, n, active int) ([]models.Challenge, error) {
	names := append([]string(nil), challengeTemplates...)
	gofakeit.ShuffleStrings(names)
	if n > len(names) {
		n = len(names)
	}

	out := make([]models.Challenge, 0, n)
	for i := 0; i < n; i++ {
		requester := creator
		if len(viewers) > 0 {
			requester = &viewers[i%len(viewers)]
		}
		c, err := f.challenges.Create(ctx, service.CreateChallengeInput{
			ChannelID: channel.ID,
			UserID:    requester.ID,
			Name:      names[i],
		})
		if err != nil {
			return nil, fmt.Errorf("request %q: %w", names[i], err)
		}
		if i < active {
			c, err = f.challenges.Approve(ctx, service.ApproveChallengeInput{
				ChallengeID: c.ID,
				TargetCents: models.DollarsToCents(float64(gofakeit.Number(5, 50) * 10)),
				ActorID:     creator.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("approve %q: %w", names[i], err)
			}
		}
		out = append(out, *c)
	}
	return out, nil
}

// CreateDonation donates a random amount from user to the featured challenge.
func (f *Factory) CreateDonation(ctx context.Context, channel *models.Channel, user *models.User) (*models.Donation, error) {
	return f.donations.Donate(ctx, service.DonateInput{
		ChannelID:   channel.ID,
		UserID:      user.ID,
		AmountCents: models.DollarsToCents(gofakeit.Price(1, 40)),
		Message:     gofakeit.HipsterSentence(4),
	})
}

// CreateMessage posts a fake chat line.
func (f *Factory) CreateMessage(ctx context.Context, channel *models.Channel, user *models.User) (*models.ChatMessage, error) {
	return f.chat.Send(ctx, service.SendChatInput{
		ChannelID: channel.ID,
		UserID:    user.ID,
		Text:      gofakeit.HipsterSentence(gofakeit.Number(3, 8)),
		Emoji:     gofakeit.RandomString(reconciler.DefaultPalette().Emojis),
	})
}
