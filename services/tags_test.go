package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/testutils"
)

func TestNormalizeTagNames(t *testing.T) {
	got := NormalizeTagNames([]string{"  networking ", "networking", "", "  ", "dns", "<b>dns</b>"})
	assert.Equal(t, []string{"networking", "dns"}, got)
}

func TestGetOrCreateTagIdempotent(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)

	first, err := GetOrCreateTag(db, "networking")
	require.NoError(t, err)
	second, err := GetOrCreateTag(db, "networking")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateTagRejectsEmptyName(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)

	_, err := CreateTag(db, "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListTagsSearch(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)

	for _, name := range []string{"networking", "network-cards", "storage"} {
		_, err := CreateTag(db, name)
		require.NoError(t, err)
	}

	tags, total, err := ListTags(db, "NetWork", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, tags, 2)
}

func TestDeleteTagDetachesFromPosts(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:    strPtr("switch acting up"),
		Body:     strPtr("ports flapping"),
		TagNames: []string{"networking", "hardware"},
	})
	require.NoError(t, err)
	require.Len(t, post.Tags, 2)

	tag, err := GetOrCreateTag(db, "networking")
	require.NoError(t, err)
	require.NoError(t, DeleteTag(db, tag.ID))

	reloaded, err := GetPost(db, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Tags, 1)
	assert.Equal(t, "hardware", reloaded.Tags[0].Name)
}

func strPtr(s string) *string { return &s }
