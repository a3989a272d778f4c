// Package export writes decision records as JSON or CSV.
//
// Both exporters accept a slice (Export) or a channel (ExportStream); the
// channel form pairs with evidence.Storage.QueryStream so large result sets
// are never held in memory:
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	if err := export.NewCSVExporter(true).ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	return <-errCh
//
// JSON output is always an array. CSV joins Steps with ";" and reports
// durations in milliseconds.
package export
