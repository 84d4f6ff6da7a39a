package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/caption"
	"github.com/xaenox/postbot/internal/flow"
	"github.com/xaenox/postbot/internal/models"
	"github.com/xaenox/postbot/internal/storage"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	machine *flow.Machine
	storage storage.Storage
	files   *http.Client
	logger  *zap.Logger
}

func New(token string, storage storage.Storage, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:     api,
		storage: storage,
		files:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}, nil
}

// SetMachine wires the state machine after construction; the machine needs
// the bot as its publisher, so the two are connected in main.
func (b *Bot) SetMachine(machine *flow.Machine) {
	b.machine = machine
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			go b.handleCallback(update.CallbackQuery)
		case update.Message != nil:
			go b.handleMessage(update.Message)
		}
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// A bare photo mid-flow is the custom thumbnail.
	if len(message.Photo) > 0 {
		b.handlePhoto(ctx, message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "movie":
		b.handleSearch(ctx, message, models.KindMovie)
	case "tv":
		b.handleSearch(ctx, message, models.KindTVShow)
	case "anime":
		b.handleSearch(ctx, message, models.KindAnime)
	case "manhwa":
		b.handleSearch(ctx, message, models.KindManhwa)
	case "cancel":
		b.dispatch(ctx, message.Chat.ID, message.From.ID, flow.Event{Type: flow.EventCancel})
	case "setwatermark":
		b.handleSetWatermark(ctx, message)
	case "setchannel":
		b.handleSetChannel(ctx, message)
	case "setformat":
		b.handleSetFormat(ctx, message)
	case "templates":
		b.handleTemplates(ctx, message)
	case "usetemplate":
		b.handleUseTemplate(ctx, message)
	case "deltemplate":
		b.handleDeleteTemplate(ctx, message)
	case "tokens":
		b.handleTokens(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome! 🎬
I turn a title into a publish-ready post: a formatted caption plus a composited thumbnail.

Try one of these:
/movie Inception
/tv Breaking Bad
/anime Attack on Titan
/manhwa Solo Leveling

Use /help to see everything I can do.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Search commands:
/movie <title> - Search movies
/tv <title> - Search TV shows
/anime <title> - Search anime
/manhwa <title> - Search manhwa
/cancel - Abandon the current flow

Post settings:
/setwatermark <text> - Watermark drawn on thumbnails
/setchannel <chat id> - Channel posts are published to

Templates:
/setformat <name> <kind>, then the template body on the next lines
/templates - List your templates
/usetemplate <name> - Activate a template
/deltemplate <name> - Delete a template
/tokens <kind> - Show the tokens valid for a kind`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message, kind models.Kind) {
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Usage: /%s <title>", message.Command()))
		return
	}
	b.dispatch(ctx, message.Chat.ID, message.From.ID, flow.Event{
		Type:  flow.EventNewQuery,
		Kind:  kind,
		Query: query,
	})
}

func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	// Largest size is last.
	photo := message.Photo[len(message.Photo)-1]
	data, err := b.downloadFile(photo.FileID)
	if err != nil {
		b.logger.Error("failed to download photo",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Couldn't read that image. Please send it again.")
		return
	}
	b.dispatch(ctx, message.Chat.ID, message.From.ID, flow.Event{
		Type:  flow.EventThumbnailProvided,
		Image: data,
	})
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()

	// Acknowledge so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, "sel_"):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, "sel_"))
		if err != nil {
			return
		}
		b.dispatch(ctx, chatID, userID, flow.Event{Type: flow.EventSelectionMade, Index: idx})
	case data == "thumb_skip":
		b.dispatch(ctx, chatID, userID, flow.Event{Type: flow.EventSkipThumbnail})
	case data == "post":
		b.dispatch(ctx, chatID, userID, flow.Event{Type: flow.EventPublishConfirmed})
	case data == "cancel":
		b.dispatch(ctx, chatID, userID, flow.Event{Type: flow.EventCancel})
	}
}

// dispatch hands one classified event to the state machine and renders the
// outcome back into the chat.
func (b *Bot) dispatch(ctx context.Context, chatID, userID int64, ev flow.Event) {
	outcome := b.machine.HandleUserEvent(ctx, userID, ev)

	switch outcome.Type {
	case flow.OutcomeNone:
	case flow.OutcomeShowCandidates:
		b.sendCandidates(chatID, outcome.Candidates)
	case flow.OutcomeRequestThumbnail:
		b.sendThumbnailPrompt(chatID, outcome.Text)
	case flow.OutcomeShowPreview:
		b.sendPreview(chatID, outcome.Preview)
	case flow.OutcomeMessage:
		b.sendMessage(chatID, outcome.Text)
	}
}

func (b *Bot) sendCandidates(chatID int64, candidates []models.Candidate) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(candidates)+1)
	for i, c := range candidates {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Label(), fmt.Sprintf("sel_%d", i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
	))

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Found %d results. Select one:", len(candidates)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send candidates", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendThumbnailPrompt(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "🖼 "+text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", "thumb_skip"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send thumbnail prompt", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendPreview(chatID int64, preview *flow.Preview) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "thumbnail.jpg",
		Bytes: preview.Image,
	})
	photo.Caption = preview.Caption
	photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Publish", "post"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to send preview", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

// Publish implements flow.Publisher: the finished post goes to the user's
// configured channel.
func (b *Bot) Publish(ctx context.Context, userID int64, image []byte, caption string) error {
	settings, err := b.storage.GetUserSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.ChannelID == 0 {
		return fmt.Errorf("no channel configured for user %d", userID)
	}

	photo := tgbotapi.NewPhoto(settings.ChannelID, tgbotapi.FileBytes{
		Name:  "thumbnail.jpg",
		Bytes: image,
	})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("send to channel %d: %w", settings.ChannelID, err)
	}
	return nil
}

func (b *Bot) handleSetWatermark(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.CommandArguments())
	settings, err := b.storage.GetUserSettings(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("failed to load settings", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't update your watermark. Please try again.")
		return
	}
	settings.Watermark = text
	if err := b.storage.UpdateUserSettings(ctx, settings); err != nil {
		b.logger.Error("failed to save settings", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't update your watermark. Please try again.")
		return
	}
	if text == "" {
		b.sendMessage(message.Chat.ID, "Watermark cleared.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Watermark set to: %s", text))
}

func (b *Bot) handleSetChannel(ctx context.Context, message *tgbotapi.Message) {
	arg := strings.TrimSpace(message.CommandArguments())
	channelID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.sendMessage(message.Chat.ID,
			"Usage: /setchannel <numeric chat id>\nForward a message from your channel to @userinfobot to find its id.")
		return
	}
	settings, err := b.storage.GetUserSettings(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("failed to load settings", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't update your channel. Please try again.")
		return
	}
	settings.ChannelID = channelID
	if err := b.storage.UpdateUserSettings(ctx, settings); err != nil {
		b.logger.Error("failed to save settings", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't update your channel. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, "Channel set. Make sure the bot is an admin there.")
}

func (b *Bot) handleSetFormat(ctx context.Context, message *tgbotapi.Message) {
	args := message.CommandArguments()
	head, body, found := strings.Cut(args, "\n")
	if !found || strings.TrimSpace(body) == "" {
		b.sendMessage(message.Chat.ID,
			"Usage:\n/setformat <name> <kind>\n<template body>\n\nKinds: movie, tvshow, anime, manhwa.\nUse /tokens <kind> to see the available tokens.")
		return
	}

	fields := strings.Fields(head)
	if len(fields) != 2 {
		b.sendMessage(message.Chat.ID, "The first line must be: <name> <kind>")
		return
	}
	name, kind := fields[0], models.Kind(fields[1])
	if !models.ValidKind(kind) {
		b.sendMessage(message.Chat.ID, "Unknown kind. Use one of: movie, tvshow, anime, manhwa.")
		return
	}
	body = strings.TrimSpace(body)
	if !strings.Contains(body, "{title}") {
		b.sendMessage(message.Chat.ID, "The template must contain at least {title}.")
		return
	}

	tpl := &models.TemplateSpec{
		UserID: message.From.ID,
		Name:   name,
		Kinds:  []models.Kind{kind},
		Body:   body,
	}
	if err := b.storage.SaveTemplate(ctx, tpl); err != nil {
		b.logger.Error("failed to save template", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't save the template. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Template %q saved and activated.", name))
}

func (b *Bot) handleTemplates(ctx context.Context, message *tgbotapi.Message) {
	templates, err := b.storage.ListTemplates(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("failed to list templates", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't load your templates. Please try again.")
		return
	}
	if len(templates) == 0 {
		b.sendMessage(message.Chat.ID, "You have no templates yet. Create one with /setformat.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your templates:\n")
	for _, t := range templates {
		marker := "  "
		if t.Active {
			marker = "✅ "
		}
		kinds := "all"
		if len(t.Kinds) > 0 {
			parts := make([]string, len(t.Kinds))
			for i, k := range t.Kinds {
				parts[i] = string(k)
			}
			kinds = strings.Join(parts, ", ")
		}
		fmt.Fprintf(&sb, "%s%s (%s)\n", marker, t.Name, kinds)
	}
	b.sendMessage(message.Chat.ID, sb.String())
}

func (b *Bot) handleUseTemplate(ctx context.Context, message *tgbotapi.Message) {
	name := strings.TrimSpace(message.CommandArguments())
	if name == "" {
		b.sendMessage(message.Chat.ID, "Usage: /usetemplate <name>")
		return
	}
	if err := b.storage.SetActiveTemplate(ctx, message.From.ID, name); err != nil {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Couldn't activate %q: no such template.", name))
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Template %q activated.", name))
}

func (b *Bot) handleDeleteTemplate(ctx context.Context, message *tgbotapi.Message) {
	name := strings.TrimSpace(message.CommandArguments())
	if name == "" {
		b.sendMessage(message.Chat.ID, "Usage: /deltemplate <name>")
		return
	}
	if err := b.storage.DeleteTemplate(ctx, message.From.ID, name); err != nil {
		b.logger.Error("failed to delete template", zap.Error(err), zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, "Sorry, couldn't delete the template. Please try again.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Template %q deleted.", name))
}

func (b *Bot) handleTokens(message *tgbotapi.Message) {
	kind := models.Kind(strings.TrimSpace(message.CommandArguments()))
	if !models.ValidKind(kind) {
		b.sendMessage(message.Chat.ID, "Usage: /tokens <movie|tvshow|anime|manhwa>")
		return
	}
	b.sendMessage(message.Chat.ID,
		fmt.Sprintf("Tokens for %s:\n%s", kind, strings.Join(caption.Tokens(kind), "  ")))
}

func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	resp, err := b.files.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
