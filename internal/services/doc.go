// Package services implements the read-only catalogue behind the results
// browser. It sits between the HTTP handlers and the files written by the
// pipeline: handlers never touch the filesystem directly.
//
// # Usage
//
//	svc, err := services.NewResultsService(paths, logger)
//	if err != nil {
//	    return err
//	}
//	neurons, err := svc.ListNeurons(ctx)
//
// Errors are *errors.AppError values. A label that is not a plain file name
// is a VALIDATION error, an unknown label or a missing merged table is
// NOT_FOUND, and unreadable files surface as PARSING errors.
package services
