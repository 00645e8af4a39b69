package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/testutils"
)

func TestCreateCommentAdvancesStatusOnce(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")
	helper := testutils.CreateUser(t, db, "1002", "bob", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("laptop won't boot"), Body: strPtr("black screen on power"),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusNotStarted, post.Status)

	_, err = CreateComment(db, helper.ID, CommentInput{PostID: post.ID, Body: strPtr("try holding power 30s")})
	require.NoError(t, err)

	reloaded, err := GetPost(db, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)

	// further comments never move the status again
	_, err = CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("did not help")})
	require.NoError(t, err)
	reloaded, err = GetPost(db, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)
}

func TestCreateCommentKeepsResolvedStatus(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("fixed issue"), Body: strPtr("body"),
		Status: strPtr(models.StatusResolved),
	})
	require.NoError(t, err)

	_, err = CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("late reply")})
	require.NoError(t, err)

	reloaded, err := GetPost(db, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, reloaded.Status)
}

func TestCreateCommentMissingPost(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	_, err := CreateComment(db, author.ID, CommentInput{PostID: 9999, Body: strPtr("hello")})
	assert.ErrorIs(t, err, ErrReferential)
}

func TestCreateCommentEmptyBody(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{Title: strPtr("t"), Body: strPtr("b")})
	require.NoError(t, err)

	_, err = CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("   ")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = CreateComment(db, author.ID, CommentInput{PostID: post.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCommentModifyTagsGatesRebuild(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("slow wifi"), Body: strPtr("2.4ghz only"),
		TagNames: []string{"wifi"},
	})
	require.NoError(t, err)

	// modify_tags off: names in the payload are ignored
	_, err = CreateComment(db, author.ID, CommentInput{
		PostID: post.ID, Body: strPtr("check channel overlap"),
		TagNames: []string{"interference"},
	})
	require.NoError(t, err)

	reloaded, err := GetPost(db, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tags, 1)
	assert.Equal(t, "wifi", reloaded.Tags[0].Name)

	// modify_tags on: parent tag set is rebuilt from the payload
	_, err = CreateComment(db, author.ID, CommentInput{
		PostID: post.ID, Body: strPtr("actually interference"),
		ModifyTags: true, TagNames: []string{"wifi", "interference"},
	})
	require.NoError(t, err)

	reloaded, err = GetPost(db, post.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(reloaded.Tags))
	for _, tag := range reloaded.Tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"wifi", "interference"}, names)
}

func TestUpdateCommentBodyOnly(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("t"), Body: strPtr("b"), TagNames: []string{"stable"},
	})
	require.NoError(t, err)
	comment, err := CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("first take")})
	require.NoError(t, err)

	updated, err := UpdateComment(db, comment.ID, CommentInput{Body: strPtr("second take")})
	require.NoError(t, err)
	assert.Equal(t, "second take", updated.Body)

	// no modify_tags means the parent's tags are untouched
	reloaded, err := GetPost(db, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tags, 1)
}

func TestListCommentsOldestFirst(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{Title: strPtr("t"), Body: strPtr("b")})
	require.NoError(t, err)

	for _, body := range []string{"first", "second", "third"} {
		_, err := CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr(body)})
		require.NoError(t, err)
	}

	comments, total, err := ListComments(db, post.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, "third", comments[2].Body)
}

func TestDeleteComment(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{Title: strPtr("t"), Body: strPtr("b")})
	require.NoError(t, err)
	comment, err := CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("bye")})
	require.NoError(t, err)

	require.NoError(t, DeleteComment(db, comment.ID))
	_, err = GetComment(db, comment.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, DeleteComment(db, comment.ID), ErrNotFound)
}
