package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/testutils"
)

func pngUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreatePostStoresImages(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:   strPtr("with screenshot"),
		Body:    strPtr("see attached"),
		Uploads: [][]byte{pngUpload(t)},
	})
	require.NoError(t, err)
	require.Len(t, post.Images, 1)

	img := post.Images[0]
	assert.Equal(t, "png", img.Format)
	assert.NotEmpty(t, img.URL)
	require.NotNil(t, img.PostID)
	assert.Equal(t, post.ID, *img.PostID)
	assert.Nil(t, img.CommentID)

	_, err = os.Stat(img.FilePath)
	assert.NoError(t, err)
}

func TestCreatePostRejectsGarbageUpload(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	_, err := CreatePost(db, author.ID, PostInput{
		Title:   strPtr("t"),
		Body:    strPtr("b"),
		Uploads: [][]byte{[]byte("not an image")},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdatePostReplacesImages(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:   strPtr("t"),
		Body:    strPtr("b"),
		Uploads: [][]byte{pngUpload(t), pngUpload(t)},
	})
	require.NoError(t, err)
	require.Len(t, post.Images, 2)
	oldPath := post.Images[0].FilePath

	updated, err := UpdatePost(db, post.ID, PostInput{
		Uploads: [][]byte{pngUpload(t)},
	})
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCommentImagesAttachWithoutModifyTags(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{Title: strPtr("t"), Body: strPtr("b")})
	require.NoError(t, err)

	comment, err := CreateComment(db, author.ID, CommentInput{
		PostID:  post.ID,
		Body:    strPtr("photo attached"),
		Uploads: [][]byte{pngUpload(t)},
	})
	require.NoError(t, err)
	require.Len(t, comment.Images, 1)
	require.NotNil(t, comment.Images[0].CommentID)
	assert.Nil(t, comment.Images[0].PostID)
}

func TestSweepOrphanImages(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:   strPtr("t"),
		Body:    strPtr("b"),
		Uploads: [][]byte{pngUpload(t)},
	})
	require.NoError(t, err)

	// detach the row from any owner to simulate an orphan
	require.NoError(t, db.Model(&models.Image{}).
		Where("post_id = ?", post.ID).
		Updates(map[string]interface{}{"post_id": nil}).Error)

	n, err := SweepOrphanImages(db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestDeleteImage(t *testing.T) {
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	author := testutils.CreateUser(t, db, "1001", "alice", "secret-pw")

	post, err := CreatePost(db, author.ID, PostInput{
		Title:   strPtr("t"),
		Body:    strPtr("b"),
		Uploads: [][]byte{pngUpload(t)},
	})
	require.NoError(t, err)
	img := post.Images[0]

	require.NoError(t, DeleteImage(db, img.ID))
	_, err = GetImage(db, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(img.FilePath)
	assert.True(t, os.IsNotExist(statErr))
}
