package bot

import (
	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Closer is a resource of the bot to release on shutdown.
type Closer interface {
	Close()
}

// Bot context keeps references to common (Telegram Bot API, storage, logger)
// resources of a bot.
type Context struct {
	Bot     *tg.BotAPI
	Storage Closer
	Logger  *zap.SugaredLogger
}

// CloneWith returns a copy of the context which logs on behalf of the user.
func (ctx *Context) CloneWith(usr int64) *Context {
	c := *ctx
	c.Logger = ctx.Logger.With("usr", usr)
	return &c
}

// Close releases the storage. It's safe to call on a context without one.
func (ctx *Context) Close() {
	if ctx.Storage != nil {
		ctx.Storage.Close()
	}
}
