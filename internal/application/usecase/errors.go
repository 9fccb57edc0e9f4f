package usecase

import (
	"errors"

	domainurl "github.com/bnema/touchicons/internal/domain/url"
)

var (
	// ErrCacheDisabled is returned when the blob directory could not be
	// created and the cache runs without storage.
	ErrCacheDisabled = errors.New("icon cache is disabled")

	// ErrInvalidOrigin is returned for origins that are not http(s) URLs.
	ErrInvalidOrigin = domainurl.ErrInvalidOrigin

	// ErrClosed is returned by icon storage operations after Close.
	ErrClosed = errors.New("icon storage is closed")
)
