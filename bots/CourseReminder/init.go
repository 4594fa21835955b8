package coursereminder

import (
	"context"

	"coursebot/bot"
	"coursebot/bots/CourseReminder/db"
	"coursebot/bots/CourseReminder/engine"
	"coursebot/bots/CourseReminder/reminder"
	"coursebot/bots/CourseReminder/tgbot"
	"coursebot/metrics"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const Name = "course_reminder"

type CourseReminder struct {
	tbot   *tgbot.TBot
	engine *engine.Engine
}

func (cr *CourseReminder) Init(cfg *bot.Config, l *zap.SugaredLogger) (*bot.Context, error) {
	rcfg, err := reminderConfig(&cfg.Reminder)
	if err != nil {
		l.Errorw("invalid reminder configuration", "err", err)
		return nil, err
	}

	ctx := context.Background()

	store, err := db.Open(ctx, cfg.Storage.Type, cfg.Storage.DSN)
	if err != nil {
		l.Errorw("failed to initialize database", "err", err)
		return nil, err
	}

	b, err := tgbot.NewTBot(cfg.TgToken, l)
	if err != nil {
		store.Close()
		return nil, err
	}
	b.RetryAttempts = cfg.RetryAttempts
	b.RetryDelay = cfg.RetryDelay

	e := engine.New(store, b, rcfg, clock.New(), l, metrics.Default())
	b.Engine = e

	if err = e.Restore(ctx); err != nil {
		// users get their reminders back once they send a schedule again
		l.Errorw("failed restoring reminders", "err", err)
	}

	cr.tbot = b
	cr.engine = e

	l.Infow("bot is initialized", "storage", cfg.Storage.Type, "zone", rcfg.Location.String())

	return &bot.Context{Bot: b.Bot, Storage: store, Logger: l}, nil
}

func (cr *CourseReminder) Run(ctx context.Context, bctx *bot.Context) error {
	if bctx.Bot == nil || cr.tbot == nil {
		bctx.Logger.Warn("Bot can't run")
		return errors.New("bot isn't initialized")
	}

	// messages of one chat are handled in order
	q := bot.NewChatQueue()

	defer func() {
		q.Wait()
		cr.engine.Shutdown()
		bctx.Close()
	}()

	uCfg := tg.NewUpdate(0)
	uCfg.Timeout = 60

	updates := bctx.Bot.GetUpdatesChan(uCfg)
	defer bctx.Bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			bctx.Logger.Info("bot is stopping")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Message == nil || u.Message.Chat == nil {
				continue
			}

			msg := u.Message
			uctx := bctx.CloneWith(msg.Chat.ID)
			q.Push(msg.Chat.ID, func() {
				cr.tbot.Dispatch(ctx, uctx.Logger, msg)
			})
		}
	}
}

func reminderConfig(cfg *bot.ReminderConfig) (reminder.Config, error) {
	h, m, err := cfg.PreviewTime()
	if err != nil {
		return reminder.Config{}, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return reminder.Config{}, err
	}

	return reminder.Config{
		Interval:      cfg.PollingInterval(),
		Advance:       cfg.Advance(),
		DailyPreview:  cfg.EnableDailyPreview,
		PreviewHour:   h,
		PreviewMinute: m,
		MatchWeekday:  cfg.MatchWeekday,
		Location:      loc,
	}, nil
}

func init() {
	bot.Register(Name, &CourseReminder{})
}
