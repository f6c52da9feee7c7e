// Package api defines the JSON wire types served by the HTTP layer and
// printed by the CLI's --json output, plus converters from internal results.
//
// Field names use snake_case to match the request and response shapes merge
// clients already send and parse. Durations are preformatted strings
// ("N.NN seconds" or "Unknown") so clients never see the Known flag.
//
// Error bodies always carry a human-readable detail and a stable kind
// (not_found, download_failed, merge_tool_failed, validation, unexpected).
package api
