package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/testutils"
)

func TestCreatePostDefaultsToNotStarted(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:    strPtr("router keeps rebooting"),
		Body:     strPtr("every few hours the router power cycles"),
		TagNames: []string{"networking", "hardware"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusNotStarted, post.Status)
	assert.Equal(t, author.ID, post.UserID)
	require.Len(t, post.Tags, 2)
}

func TestCreatePostValidation(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	cases := []struct {
		name string
		in   PostInput
	}{
		{"missing title", PostInput{Body: strPtr("body")}},
		{"blank title", PostInput{Title: strPtr("   "), Body: strPtr("body")}},
		{"missing body", PostInput{Title: strPtr("title")}},
		{"bad status", PostInput{Title: strPtr("title"), Body: strPtr("body"), Status: strPtr("done")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreatePost(db, author.ID, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdatePostReplacesTagSet(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:    strPtr("vpn drops"),
		Body:     strPtr("tunnel dies after an hour"),
		TagNames: []string{"vpn", "networking"},
	})
	require.NoError(t, err)

	updated, err := UpdatePost(db, post.ID, PostInput{
		TagNames: []string{"networking", "firewall"},
	})
	require.NoError(t, err)

	names := make([]string, 0, len(updated.Tags))
	for _, tag := range updated.Tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"networking", "firewall"}, names)

	// the detached tag survives in the catalogue
	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Where("name = ?", "vpn").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdatePostEmptyTagListClears(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:    strPtr("tagged post"),
		Body:     strPtr("body"),
		TagNames: []string{"networking"},
	})
	require.NoError(t, err)

	updated, err := UpdatePost(db, post.ID, PostInput{TagNames: []string{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)
}

func TestUpdatePostPartialScalars(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("original title"),
		Body:  strPtr("original body"),
	})
	require.NoError(t, err)

	updated, err := UpdatePost(db, post.ID, PostInput{Status: strPtr(models.StatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, "original title", updated.Title)
	assert.Equal(t, "original body", updated.Body)
	assert.Equal(t, models.StatusResolved, updated.Status)
}

func TestUpdatePostNotFound(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)

	_, err := UpdatePost(db, 9999, PostInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPostsStatusFilterAndSearch(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	_, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("printer jam"), Body: strPtr("paper stuck"),
	})
	require.NoError(t, err)
	_, err = CreatePost(db, author.ID, PostInput{
		Title: strPtr("printer offline"), Body: strPtr("no response"),
		Status: strPtr(models.StatusResolved),
	})
	require.NoError(t, err)
	_, err = CreatePost(db, author.ID, PostInput{
		Title: strPtr("monitor flicker"), Body: strPtr("60hz issue"),
	})
	require.NoError(t, err)

	posts, total, err := ListPosts(db, models.StatusResolved, "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, "printer offline", posts[0].Title)

	_, total, err = ListPosts(db, "", "printer", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, _, err = ListPosts(db, "finished", "", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeletePostRemovesComments(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title: strPtr("to delete"), Body: strPtr("body"), TagNames: []string{"cleanup"},
	})
	require.NoError(t, err)

	_, err = CreateComment(db, author.ID, CommentInput{PostID: post.ID, Body: strPtr("a comment")})
	require.NoError(t, err)

	require.NoError(t, DeletePost(db, post.ID))

	_, err = GetPost(db, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.EqualValues(t, 0, comments)

	// tags survive post deletion
	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.EqualValues(t, 1, tags)
}
