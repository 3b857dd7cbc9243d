// Package tgui holds small Telegram UI helpers: inline keyboard builders,
// HTML parse-mode escaping and rune-safe text cutting.
package tgui
