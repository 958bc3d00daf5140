// Package analysis computes derived statistics over a processed dataset.
//
// Analyze is pure. Each metric is computed only when the datasets it depends
// on are present; otherwise it is absent from the Result (not zero).
package analysis

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/Sternrassler/json-aggregator/pkg/processor"
	"github.com/Sternrassler/json-aggregator/pkg/record"
)

// Metric names as they appear in the serialized result.
const (
	MetricUserPostCounts  = "user_post_counts"
	MetricLongPostsCount  = "long_posts_count"
	MetricTopUsersByPosts = "top_3_users_by_posts"
)

const (
	// LongPostThreshold is the body length, in code points, a post must
	// exceed to count as long.
	LongPostThreshold = 100

	// TopUsersLimit is the number of users in the ranking.
	TopUsersLimit = 3
)

// UserRank is one entry of the top users ranking.
type UserRank struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	PostCount int    `json:"post_count"`
}

// Result holds the computed metrics. Nil fields are absent metrics.
type Result struct {
	UserPostCounts  map[int64]int
	LongPostsCount  *int
	TopUsersByPosts []UserRank
}

// Has reports whether the named metric was computed.
func (r Result) Has(metric string) bool {
	switch metric {
	case MetricUserPostCounts:
		return r.UserPostCounts != nil
	case MetricLongPostsCount:
		return r.LongPostsCount != nil
	case MetricTopUsersByPosts:
		return r.TopUsersByPosts != nil
	default:
		return false
	}
}

// Analyze computes every metric whose prerequisites are in ds.
func Analyze(ds *processor.Dataset) Result {
	var res Result
	if ds == nil {
		return res
	}

	users, hasUsers := ds.Users()
	posts, hasPosts := ds.Posts()

	if hasPosts {
		n := LongPostsCount(posts)
		res.LongPostsCount = &n
	}

	if hasUsers && hasPosts {
		res.UserPostCounts = UserPostCounts(posts)
		res.TopUsersByPosts = TopUsersByPosts(users, res.UserPostCounts, TopUsersLimit)
	}

	return res
}

// UserPostCounts counts posts per UserID. Users without posts are absent.
func UserPostCounts(posts []*record.Post) map[int64]int {
	counts := make(map[int64]int)
	for _, p := range posts {
		counts[p.UserID]++
	}
	return counts
}

// LongPostsCount counts posts whose body is longer than LongPostThreshold
// code points.
func LongPostsCount(posts []*record.Post) int {
	n := 0
	for _, p := range posts {
		if utf8.RuneCountInString(p.Body) > LongPostThreshold {
			n++
		}
	}
	return n
}

// TopUsersByPosts ranks users by post count, descending, keeping the input
// order among equal counts, and returns at most limit entries.
func TopUsersByPosts(users []*record.User, counts map[int64]int, limit int) []UserRank {
	ranks := make([]UserRank, len(users))
	for i, u := range users {
		ranks[i] = UserRank{
			UserID:    u.ID,
			Username:  u.Username,
			PostCount: counts[u.ID],
		}
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].PostCount > ranks[j].PostCount
	})

	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

// MarshalJSON emits the present metrics as one object with sorted keys.
func (r Result) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, 3)
	if r.UserPostCounts != nil {
		counts := make(map[string]int, len(r.UserPostCounts))
		for id, n := range r.UserPostCounts {
			counts[strconv.FormatInt(id, 10)] = n
		}
		fields[MetricUserPostCounts] = counts
	}
	if r.LongPostsCount != nil {
		fields[MetricLongPostsCount] = *r.LongPostsCount
	}
	if r.TopUsersByPosts != nil {
		fields[MetricTopUsersByPosts] = r.TopUsersByPosts
	}

	// encoding/json sorts map keys.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
