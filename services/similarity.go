package services

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
)

const similarPostsLimit = 5

// RankedPost pairs a post with its similarity ranking metadata.
type RankedPost struct {
	models.Post
	MatchingTags  int     `json:"matching_tags"`
	MatchingScore float64 `json:"matching_score"`
}

// FindSimilarPosts ranks posts by tag overlap with the query phrases.
//
// Each phrase is split on whitespace into tokens. A post matches when any of
// its tags' names contains any token, case-insensitively. matching_tags is
// the number of the post's tag associations that satisfy the filter (raw
// association rows, not distinct tokens), and matching_score divides it by
// the total token count. The top 5 posts ordered by (score, matching_tags)
// descending are returned; no matches yields an empty slice.
func FindSimilarPosts(db *gorm.DB, phrases []string) ([]RankedPost, error) {
	var tokens []string
	for _, phrase := range phrases {
		tokens = append(tokens, strings.Fields(phrase)...)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: tags", ErrValidation)
	}

	conds := make([]string, len(tokens))
	args := make([]interface{}, len(tokens))
	for i, token := range tokens {
		conds[i] = "LOWER(tags.name) LIKE ?"
		args[i] = "%" + strings.ToLower(token) + "%"
	}

	type matchRow struct {
		PostID       uint
		MatchingTags int
	}
	var rows []matchRow
	err := db.Table("posts").
		Select("posts.id AS post_id, COUNT(tags.id) AS matching_tags").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where(strings.Join(conds, " OR "), args...).
		Group("posts.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []RankedPost{}, nil
	}

	total := float64(len(tokens))
	type scored struct {
		postID uint
		tags   int
		score  float64
	}
	ranked := make([]scored, len(rows))
	for i, row := range rows {
		ranked[i] = scored{
			postID: row.PostID,
			tags:   row.MatchingTags,
			score:  float64(row.MatchingTags) / total,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].tags > ranked[j].tags
	})
	if len(ranked) > similarPostsLimit {
		ranked = ranked[:similarPostsLimit]
	}

	ids := make([]uint, len(ranked))
	for i, r := range ranked {
		ids[i] = r.postID
	}
	var posts []models.Post
	err = db.
		Preload("User").
		Preload("Tags").
		Preload("Images").
		Find(&posts, ids).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	results := make([]RankedPost, 0, len(ranked))
	for _, r := range ranked {
		post, ok := byID[r.postID]
		if !ok {
			continue
		}
		results = append(results, RankedPost{
			Post:          post,
			MatchingTags:  r.tags,
			MatchingScore: r.score,
		})
	}
	return results, nil
}
