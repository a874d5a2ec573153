// Package errors provides standardized error handling patterns for hostrt components.
//
// # Overview
//
// The errors package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal (unrecoverable,
// stop processing). This classification lets the class loader, buffer, dispatcher and
// scheduler packages make consistent decisions about retries and shutdown without
// hardcoded error string matching.
//
// # Quick Start
//
//	if err := loader.LoadLibrary(); err != nil {
//	    return errors.WrapFatal(err, "ClassLoader", "LoadLibrary", "open artifact")
//	}
//
//	if errors.IsTransient(err) {
//	    // safe to retry with backoff
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("component=%s class=%s", ce.Component, ce.Class)
//	}
package errors
