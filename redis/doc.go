// Package redis remembers which records have already been transcribed, so a
// record redelivered by the source is skipped instead of transcribed twice.
//
// Client wraps go-redis with the service logger and lifecycle. Deduper keeps
// one key per record fingerprint with a TTL and satisfies
// coordinator.Deduper:
//
//	cmp := redis.NewComponent(cfg, log)
//	_ = cmp.Start(ctx)
//	dedupe := redis.NewDeduper(cmp.Client(), cfg)
package redis
