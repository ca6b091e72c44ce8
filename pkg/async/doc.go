// Package async provides panic-safe helpers for fire-and-forget goroutines.
package async
