// Package tgui provides small Telegram text helpers:
//   - HTML-safe message fragments for ParseMode="HTML" (auto escaping)
//   - Rune-aware truncation for summary budgets
package tgui
