// Package logx is Evara's structured logging layer.
//
// A thin wrapper (logx.Logger) over zerolog keeps call sites short:
//   - console output with short timestamps and file:line callers
//   - an optional JSON file sink
//   - an optional Telegram sink that forwards warnings to the owner,
//     filtered by level and rate limited
//
// The zero Logger is a valid no-op logger.
package logx
