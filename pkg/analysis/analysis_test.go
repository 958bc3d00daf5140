package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/Sternrassler/json-aggregator/pkg/processor"
	"github.com/Sternrassler/json-aggregator/pkg/record"
)

func dataset(users []*record.User, posts []*record.Post) *processor.Dataset {
	ds := &processor.Dataset{Records: make(map[string][]record.Record)}
	if users != nil {
		recs := make([]record.Record, len(users))
		for i, u := range users {
			recs[i] = u
		}
		ds.Records[processor.KeyUsers] = recs
	}
	if posts != nil {
		recs := make([]record.Record, len(posts))
		for i, p := range posts {
			recs[i] = p
		}
		ds.Records[processor.KeyPosts] = recs
	}
	return ds
}

func postsForUsers(userIDs ...int64) []*record.Post {
	posts := make([]*record.Post, len(userIDs))
	for i, uid := range userIDs {
		posts[i] = &record.Post{ID: int64(i + 1), UserID: uid, Title: "t", Body: "b"}
	}
	return posts
}

func TestUserPostCounts(t *testing.T) {
	ds := dataset(
		[]*record.User{{ID: 1}, {ID: 2}},
		postsForUsers(1, 1, 2),
	)

	res := Analyze(ds)

	want := map[int64]int{1: 2, 2: 1}
	if !reflect.DeepEqual(res.UserPostCounts, want) {
		t.Errorf("UserPostCounts = %v, want %v", res.UserPostCounts, want)
	}
}

func TestUserPostCounts_UsersWithoutPostsAbsent(t *testing.T) {
	ds := dataset(
		[]*record.User{{ID: 1}, {ID: 2}, {ID: 3}},
		postsForUsers(2, 9),
	)

	counts := Analyze(ds).UserPostCounts

	if _, ok := counts[1]; ok {
		t.Error("user 1 has no posts and must be absent")
	}
	// Posts referencing unknown users still count.
	if counts[9] != 1 {
		t.Errorf("counts[9] = %d, want 1", counts[9])
	}
}

func TestLongPostsCount(t *testing.T) {
	lengths := []int{50, 150, 101, 100}
	posts := make([]*record.Post, len(lengths))
	for i, n := range lengths {
		posts[i] = &record.Post{ID: int64(i), UserID: 1, Body: strings.Repeat("x", n)}
	}

	res := Analyze(dataset(nil, posts))

	if res.LongPostsCount == nil {
		t.Fatal("LongPostsCount absent, want computed")
	}
	if *res.LongPostsCount != 2 {
		t.Errorf("LongPostsCount = %d, want 2", *res.LongPostsCount)
	}
}

func TestLongPostsCount_CodePoints(t *testing.T) {
	// 100 two-byte runes: 200 bytes but not long.
	posts := []*record.Post{
		{Body: strings.Repeat("é", 100)},
		{Body: strings.Repeat("é", 101)},
	}

	if got := LongPostsCount(posts); got != 1 {
		t.Errorf("LongPostsCount() = %d, want 1", got)
	}
}

func TestTopUsersByPosts(t *testing.T) {
	users := []*record.User{
		{ID: 1, Username: "a"},
		{ID: 2, Username: "b"},
		{ID: 3, Username: "c"},
		{ID: 4, Username: "d"},
		{ID: 5, Username: "e"},
	}
	// Post counts per user: [3, 1, 3, 0, 2].
	posts := postsForUsers(1, 1, 1, 2, 3, 3, 3, 5, 5)

	res := Analyze(dataset(users, posts))

	want := []UserRank{
		{UserID: 1, Username: "a", PostCount: 3},
		{UserID: 3, Username: "c", PostCount: 3},
		{UserID: 5, Username: "e", PostCount: 2},
	}
	if !reflect.DeepEqual(res.TopUsersByPosts, want) {
		t.Errorf("TopUsersByPosts = %+v, want %+v", res.TopUsersByPosts, want)
	}
}

func TestTopUsersByPosts_FewerUsersThanLimit(t *testing.T) {
	users := []*record.User{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}}

	got := TopUsersByPosts(users, map[int64]int{2: 4}, TopUsersLimit)

	want := []UserRank{
		{UserID: 2, Username: "b", PostCount: 4},
		{UserID: 1, Username: "a", PostCount: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopUsersByPosts() = %+v, want %+v", got, want)
	}
}

func TestAnalyze_Presence(t *testing.T) {
	users := []*record.User{{ID: 1, Username: "a"}}
	posts := postsForUsers(1)

	tests := []struct {
		name string
		ds   *processor.Dataset
		want []string
	}{
		{"nil dataset", nil, nil},
		{"empty dataset", dataset(nil, nil), nil},
		{"users only", dataset(users, nil), nil},
		{"posts only", dataset(nil, posts), []string{MetricLongPostsCount}},
		{"users and posts", dataset(users, posts), []string{MetricUserPostCounts, MetricLongPostsCount, MetricTopUsersByPosts}},
		{"no users left after validation", dataset([]*record.User{}, posts), []string{MetricUserPostCounts, MetricLongPostsCount, MetricTopUsersByPosts}},
	}

	all := []string{MetricUserPostCounts, MetricLongPostsCount, MetricTopUsersByPosts}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Analyze(tt.ds)

			for _, metric := range all {
				want := false
				for _, w := range tt.want {
					if w == metric {
						want = true
					}
				}
				if got := res.Has(metric); got != want {
					t.Errorf("Has(%s) = %v, want %v", metric, got, want)
				}
			}
		})
	}
}

func TestAnalyze_DoesNotMutateDataset(t *testing.T) {
	users := []*record.User{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}}
	ds := dataset(users, postsForUsers(2, 2))

	Analyze(ds)

	if ds.Records[processor.KeyUsers][0].(*record.User).ID != 1 {
		t.Error("Analyze reordered the dataset's users")
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	n := 1
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "empty",
			res:  Result{},
			want: `{}`,
		},
		{
			name: "long posts only",
			res:  Result{LongPostsCount: &n},
			want: `{"long_posts_count":1}`,
		},
		{
			name: "all metrics sorted",
			res: Result{
				UserPostCounts:  map[int64]int{2: 1, 1: 2},
				LongPostsCount:  &n,
				TopUsersByPosts: []UserRank{{UserID: 1, Username: "Bret", PostCount: 2}},
			},
			want: `{"long_posts_count":1,` +
				`"top_3_users_by_posts":[{"user_id":1,"username":"Bret","post_count":2}],` +
				`"user_post_counts":{"1":2,"2":1}}`,
		},
		{
			name: "empty ranking kept",
			res:  Result{UserPostCounts: map[int64]int{}, TopUsersByPosts: []UserRank{}},
			want: `{"top_3_users_by_posts":[],"user_post_counts":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.res)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}
