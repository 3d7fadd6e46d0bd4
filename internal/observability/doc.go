// Package observability records what the mustdo engine does and derives
// views from it: an append-only JSON Lines event log, metrics aggregated
// from that log, alerts evaluated over the task collection, and a webhook
// notifier for those alerts.
package observability
