// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package candidates

import (
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/moistari/rls"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

// ReleaseCache provides cached rls parsing of directory names. The same
// album folder shows up once per file and once per search.
type ReleaseCache struct {
	cache *ttlcache.Cache[string, models.ReleaseInfo]
}

// NewReleaseCache creates a new release cache with 5 minute expiration
func NewReleaseCache() *ReleaseCache {
	cache := ttlcache.New(ttlcache.Options[string, models.ReleaseInfo]{}.
		SetDefaultTTL(5 * time.Minute))

	return &ReleaseCache{
		cache: cache,
	}
}

// Parse parses a directory name into release metadata, with caching
func (rc *ReleaseCache) Parse(dirName string) models.ReleaseInfo {
	if cached, found := rc.cache.Get(dirName); found {
		return cached
	}

	info := releaseInfoFrom(dirName, rls.ParseString(dirName))
	rc.cache.Set(dirName, info, ttlcache.DefaultTTL)

	return info
}

// Clear removes a specific entry from cache
func (rc *ReleaseCache) Clear(dirName string) {
	rc.cache.Delete(dirName)
}

func releaseInfoFrom(dirName string, r rls.Release) models.ReleaseInfo {
	info := models.ReleaseInfo{
		Artist: r.Artist,
		Title:  r.Title,
		Year:   r.Year,
		Source: r.Source,
	}

	for _, list := range [][]string{r.Edition, r.Other} {
		for _, v := range list {
			if strings.Contains(strings.ToLower(v), "remaster") {
				info.Remaster = true
			}
		}
	}
	if !info.Remaster && strings.Contains(strings.ToLower(dirName), "remaster") {
		info.Remaster = true
	}

	return info
}
