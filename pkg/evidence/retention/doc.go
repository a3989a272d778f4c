// Package retention prunes old decision records.
//
// A Pruner deletes records in two phases: everything that started more than
// RetentionDays ago, then the oldest records beyond MaxRecords. With an
// ArchivePath each batch is first exported as JSON. The Scheduler runs the
// pruner on a standard cron expression using robfig/cron:
//
//	p := retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention))
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Stop()
//
// An empty schedule disables automatic pruning; Prune can still be called
// directly, as `warden evidence prune` does.
package retention
