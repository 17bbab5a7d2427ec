// Package bot exposes the casino as Discord slash commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"casino-bot/internal/models"
	"casino-bot/internal/services"
)

const actionTimeout = 10 * time.Second

type Dispatcher interface {
	Dispatch(ctx context.Context, req models.Request) (*models.Result, error)
}

type Bot struct {
	session    *discordgo.Session
	dispatcher Dispatcher
	guildID    string
	logger     *zap.Logger
}

func New(token, guildID string, dispatcher Dispatcher, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session:    session,
		dispatcher: dispatcher,
		guildID:    guildID,
		logger:     logger,
	}
	session.AddHandler(b.onInteraction)
	return b, nil
}

func betOption() *discordgo.ApplicationCommandOption {
	minBet := 1.0
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "bet",
		Description: fmt.Sprintf("Coins to bet (default %d)", models.DefaultBet),
		MinValue:    &minBet,
	}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// Commands is the slash command set registered on startup.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "bj",
			Description: "Play blackjack against the dealer",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("play", "Start a round", betOption()),
				subcommand("hit", "Draw a card"),
				subcommand("stand", "Hold and let the dealer play"),
			},
		},
		{
			Name:        "slot",
			Description: "Slot machine and coin commands",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("play", "Spin the reels", betOption()),
				subcommand("jackpot", "Show the progressive jackpot"),
				subcommand("coins", "Show your coins and stats"),
				subcommand("ranking", "Richest players"),
				subcommand("bankruptcy", "Most bankruptcies"),
				subcommand("bonus", "Claim 500 coins when broke"),
			},
		},
	}
}

var actions = map[string]map[string]models.Action{
	"bj": {
		"play":  models.ActionStartCardRound,
		"hit":   models.ActionHit,
		"stand": models.ActionStand,
	},
	"slot": {
		"play":       models.ActionSpinSlot,
		"jackpot":    models.ActionQueryJackpot,
		"coins":      models.ActionQueryStats,
		"ranking":    models.ActionQueryRanking,
		"bankruptcy": models.ActionQueryBankruptcyRanking,
		"bonus":      models.ActionClaimBonus,
	},
}

// RequestFor translates one slash command invocation into a dispatcher request.
func RequestFor(playerID string, data discordgo.ApplicationCommandInteractionData) (models.Request, error) {
	req := models.Request{PlayerID: playerID}
	if len(data.Options) == 0 {
		return req, fmt.Errorf("%w: /%s without subcommand", services.ErrUnknownAction, data.Name)
	}

	sub := data.Options[0]
	action, ok := actions[data.Name][sub.Name]
	if !ok {
		return req, fmt.Errorf("%w: /%s %s", services.ErrUnknownAction, data.Name, sub.Name)
	}
	req.Action = action

	for _, opt := range sub.Options {
		if opt.Name == "bet" && opt.Type == discordgo.ApplicationCommandOptionInteger {
			bet := opt.IntValue()
			req.Bet = &bet
		}
	}
	return req, nil
}

func invoker(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	playerID := invoker(i)
	req, err := RequestFor(playerID, i.ApplicationCommandData())
	if err != nil {
		b.respond(s, i, RenderError(err), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	result, err := b.dispatcher.Dispatch(ctx, req)
	if err != nil {
		if !services.IsUserError(err) {
			b.logger.Error("command failed",
				zap.String("player_id", playerID),
				zap.String("action", string(req.Action)),
				zap.Error(err),
			)
		}
		b.respond(s, i, RenderError(err), true)
		return
	}
	b.respond(s, i, Render(result), false)
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warn("failed to respond to interaction", zap.Error(err))
	}
}

// Run connects, registers the commands, and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	defer b.session.Close()

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.logger.Info("discord bot ready", zap.String("user", b.session.State.User.Username), zap.String("guild_id", b.guildID))

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
