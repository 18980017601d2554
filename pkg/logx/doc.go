// Package logx provides the bot's structured logging facade on top of
// zerolog. Services hold a Logger value; sink configuration (console,
// file) lives in Service and can be re-applied at runtime without
// re-plumbing loggers through the app.
package logx
