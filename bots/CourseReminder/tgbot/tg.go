package tgbot

import (
	"context"
	"strconv"
	"time"

	"coursebot/bot"
	"coursebot/bots/CourseReminder/engine"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const txtUnknownCommand = "我不认识这个命令，发送 /help 查看可用命令。"

var errBadChatID = errors.New("chat id isn't a number")

type Command struct {
	Name string
}

var (
	cmdStart = Command{"start"}
	cmdHelp  = Command{"help"}
	cmdList  = Command{"list"}
	cmdStop  = Command{"stop"}
)

// TBot connects Telegram updates to the engine and delivers the engine's
// messages back to Telegram.
type TBot struct {
	Bot           *tg.BotAPI
	Engine        *engine.Engine
	Logger        *zap.SugaredLogger
	RetryDelay    time.Duration
	RetryAttempts int
}

func NewTBot(tgtoken string, l *zap.SugaredLogger) (*TBot, error) {
	b, err := tg.NewBotAPI(tgtoken)
	if err != nil {
		l.Errorw("failed to initialize Telegram Bot", "err", err)
		return nil, errors.Wrap(err, "failed to initialize Telegram Bot")
	}

	b.Debug = false

	l.Infof("authorized on account %q (%q, %d)", b.Self.FirstName, b.Self.UserName, b.Self.ID)

	return &TBot{
		Bot:           b,
		Logger:        l,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}, nil
}

// Send delivers a plain text message to the chat. Users are identified by
// their chat ids.
func (b *TBot) Send(ctx context.Context, usr string, txt string) error {
	chatID, err := chatIDOf(usr)
	if err != nil {
		return err
	}

	m := tg.NewMessage(chatID, txt)
	m.DisableWebPagePreview = true

	err = bot.RobustExecute(ctx, b.RetryAttempts, b.RetryDelay, func() error {
		_, err := b.Bot.Request(m)
		return err
	})
	return errors.Wrapf(err, "failed sending message to %d", chatID)
}

func (b *TBot) HandleMessage(ctx context.Context, msg *tg.Message) {
	b.Engine.Handle(ctx, eventFromMessage(msg))
}

// HandleCommand runs the command. Commands interrupt any ongoing
// conversation.
func (b *TBot) HandleCommand(ctx context.Context, l *zap.SugaredLogger, msg *tg.Message) {
	usr := userOf(msg)
	b.Engine.Reset(usr)

	switch msg.Command() {
	case cmdStart.Name:
		l.Info("user has started the bot")
		b.Engine.Welcome(ctx, usr)

	case cmdHelp.Name:
		b.Engine.Help(ctx, usr)

	case cmdList.Name:
		b.Engine.ListCourses(ctx, usr)

	case cmdStop.Name:
		b.Engine.StopReminders(ctx, usr)

	default:
		l.Infow("unknown command", "cmd", msg.Command())
		if err := b.Send(ctx, usr, txtUnknownCommand); err != nil {
			l.Errorw("failed sending message", "err", err)
		}
	}
}

// Dispatch routes the message to a handler. l logs on behalf of the user.
func (b *TBot) Dispatch(ctx context.Context, l *zap.SugaredLogger, msg *tg.Message) {
	if msg.IsCommand() {
		b.HandleCommand(ctx, l, msg)
	} else {
		b.HandleMessage(ctx, msg)
	}
}

func eventFromMessage(msg *tg.Message) engine.Event {
	txt := msg.Text
	if txt == "" {
		txt = msg.Caption
	}

	return engine.Event{
		UserID:   userOf(msg),
		Text:     txt,
		HasMedia: hasMedia(msg),
	}
}

func hasMedia(msg *tg.Message) bool {
	return len(msg.Photo) > 0 ||
		msg.Document != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Voice != nil ||
		msg.Sticker != nil ||
		msg.Animation != nil ||
		msg.VideoNote != nil
}

// userOf returns the chat the replies go to
func userOf(msg *tg.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10)
}

func chatIDOf(usr string) (int64, error) {
	id, err := strconv.ParseInt(usr, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errBadChatID, "%q", usr)
	}
	return id, nil
}
