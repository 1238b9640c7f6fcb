package store

import "errors"

// ErrNotFound is returned when a document id or lookup key matches nothing.
var ErrNotFound = errors.New("document not found")

// Collection names, kept for log lines and error messages.
const (
	CollectionConfigurations = "Configurations"
	CollectionJobs           = "Jobs"
	CollectionUsers          = "Users"
)
