// Package common defines shared constants and sentinel errors used across
// fieldcapture components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Queue errors.
	ErrMissingPayload = errors.New("queued item has no payload")
	ErrItemDead       = errors.New("item dead-lettered")

	// Submission errors.
	ErrUploadFailed = errors.New("upload failed")
	ErrOffline      = errors.New("remote service unreachable")
)
