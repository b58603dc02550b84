// Package trailer picks the playable trailer for a movie out of its TMDb videos.
package trailer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/vadimtrunov/marquee/internal/tmdb"
)

const (
	wantType = "Trailer"
	wantSite = "YouTube"

	embedBaseURL = "https://www.youtube.com/embed/"
	watchBaseURL = "https://www.youtube.com/watch?v="
)

// Status is the outcome of a trailer lookup.
type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result keeps the three outcomes apart so failures stay visible to logging
// even though callers usually collapse them with KeyOrNil.
type Result struct {
	Status Status
	Key    string
	Err    error
}

// KeyOrNil returns the trailer key, or nil when none was found or the lookup failed.
func (r Result) KeyOrNil() *string {
	if r.Status != StatusFound || r.Key == "" {
		return nil
	}
	key := r.Key
	return &key
}

// VideoSource lists the videos of a movie.
type VideoSource interface {
	MovieVideos(ctx context.Context, movieID int) ([]tmdb.Video, error)
}

// Resolver finds the YouTube trailer of a movie. Concurrent lookups for the
// same movie share one request.
type Resolver struct {
	videos VideoSource
	group  singleflight.Group
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by videos.
func NewResolver(videos VideoSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{videos: videos, logger: logger}
}

// Resolve looks up the trailer for movieID. It never returns an error:
// request failures come back as StatusFailed.
func (r *Resolver) Resolve(ctx context.Context, movieID int) Result {
	if movieID <= 0 {
		return Result{Status: StatusFailed, Err: fmt.Errorf("invalid movie id %d", movieID)}
	}

	// The shared request outlives any single caller; each caller stops
	// waiting on its own context.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.Itoa(movieID), func() (any, error) {
		return r.videos.MovieVideos(shared, movieID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	if res.Err != nil {
		r.logger.Warn("trailer lookup failed",
			slog.Int("movie_id", movieID),
			slog.String("error", res.Err.Error()),
		)
		return Result{Status: StatusFailed, Err: res.Err}
	}

	videos, _ := res.Val.([]tmdb.Video)
	video, ok := Select(videos)
	if !ok {
		return Result{Status: StatusNotFound}
	}
	return Result{Status: StatusFound, Key: video.Key}
}

// Select returns the first YouTube trailer in received order.
func Select(videos []tmdb.Video) (tmdb.Video, bool) {
	for _, v := range videos {
		if v.Type == wantType && v.Site == wantSite && v.Key != "" {
			return v, true
		}
	}
	return tmdb.Video{}, false
}

// EmbedURL returns the embeddable player URL for a trailer key.
func EmbedURL(key string) string {
	if key == "" {
		return ""
	}
	return embedBaseURL + key
}

// WatchURL returns the regular watch page URL for a trailer key.
func WatchURL(key string) string {
	if key == "" {
		return ""
	}
	return watchBaseURL + key
}
