// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package config

import (
	"net/url"
)

// validateHTTPURL checks scheme and host. Archive base URLs carry paths, so
// a path is allowed but a query string is not.
func validateHTTPURL(rawURL, fieldName string) error {
	if rawURL == "" {
		return invalid(fieldName, "required")
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return invalid(fieldName, "failed to parse URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return invalid(fieldName, "scheme must be http or https, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return invalid(fieldName, "host is required")
	}
	if parsedURL.RawQuery != "" {
		return invalid(fieldName, "should not contain query parameters, remove: ?%s", parsedURL.RawQuery)
	}
	return nil
}
