package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/routes"
	"github.com/askboard/askboard/testutils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutils.SetupDB(t)
	testutils.SetupConfig(t)
	return routes.SetupRouter(db), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func registerAndLogin(t *testing.T, r *gin.Engine, number, username string) (string, string) {
	t.Helper()
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"number":   number,
		"username": username,
		"password": "secret-pw",
	})
	require.Equal(t, http.StatusCreated, w.Code, "register: %s", w.Body.String())

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	require.NotEmpty(t, data.RefreshToken)
	return data.AccessToken, data.RefreshToken
}

func TestRegisterDuplicateNumberConflicts(t *testing.T) {
	r, _ := setupAPI(t)

	registerAndLogin(t, r, "1001", "alice")

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"number": "1001", "username": "alice2", "password": "secret-pw",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"number": "1002", "username": "alice", "password": "secret-pw",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginErrorsAreUndifferentiated(t *testing.T) {
	r, _ := setupAPI(t)
	registerAndLogin(t, r, "1001", "alice")

	wWrongPw, envWrongPw := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"number": "1001", "password": "wrong-password",
	})
	wUnknown, envUnknown := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"number": "9999", "password": "secret-pw",
	})

	assert.Equal(t, http.StatusUnauthorized, wWrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, wUnknown.Code)
	assert.Equal(t, envWrongPw.Message, envUnknown.Message)
	assert.Equal(t, envWrongPw.Code, envUnknown.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	r, _ := setupAPI(t)
	_, refresh := registerAndLogin(t, r, "1001", "alice")

	// a refresh token is not an access token
	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/auth/me", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)

	// the new access token works
	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMutationsRequireBearerToken(t *testing.T) {
	r, _ := setupAPI(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/posts", "", gin.H{
		"title": "t", "body": "b",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/tags", "", gin.H{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	r, db := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/posts", access, gin.H{
		"title": "switch acting up",
		"body":  "ports keep flapping",
		"tags":  []gin.H{{"name": "networking"}, {"name": "hardware"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotZero(t, created.Post.ID)
	assert.Equal(t, models.StatusNotStarted, created.Post.Status)
	assert.Len(t, created.Post.Tags, 2)

	// public read
	w, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", created.Post.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// full tag replacement on update
	w, env = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/posts/%d", created.Post.ID), access, gin.H{
		"status": models.StatusResolved,
		"tags":   []gin.H{{"name": "hardware"}, {"name": "switches"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.StatusResolved, updated.Post.Status)
	names := make([]string, 0, len(updated.Post.Tags))
	for _, tag := range updated.Post.Tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"hardware", "switches"}, names)

	// a stranger cannot edit or delete
	otherAccess, _ := registerAndLogin(t, r, "1002", "bob")
	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", created.Post.ID), otherAccess, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", created.Post.ID), access, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreatePostMultipart(t *testing.T) {
	r, _ := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "printer photo"))
	require.NoError(t, mw.WriteField("body", "jam shown in picture"))
	require.NoError(t, mw.WriteField("tags", "printer, hardware"))

	fw, err := mw.CreateFormFile("images", "jam.png")
	require.NoError(t, err)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, png.Encode(fw, img))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	names := make([]string, 0, len(created.Post.Tags))
	for _, tag := range created.Post.Tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"printer", "hardware"}, names)
	require.Len(t, created.Post.Images, 1)
	assert.Contains(t, created.Post.Images[0].URL, "/media/uploads/")
}

func TestCommentFlowOverHTTP(t *testing.T) {
	r, _ := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	_, env := doJSON(t, r, http.MethodPost, "/api/v1/posts", access, gin.H{
		"title": "wifi drops", "body": "mid-call", "tags": []gin.H{{"name": "wifi"}},
	})
	var created struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, _ := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", created.Post.ID), access, gin.H{
		"body":        "check for interference",
		"modify_tags": true,
		"tags":        []gin.H{{"name": "wifi"}, {"name": "interference"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// the comment advanced the status and rebuilt the tag set
	_, env = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", created.Post.ID), "", nil)
	var detail struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, models.StatusInProgress, detail.Post.Status)
	assert.Len(t, detail.Post.Tags, 2)
	require.Len(t, detail.Post.Comments, 1)

	w, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", created.Post.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSimilarPostsEndpoint(t *testing.T) {
	r, _ := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	_, env := doJSON(t, r, http.MethodPost, "/api/v1/posts", access, gin.H{
		"title": "wifi and dns", "body": "b",
		"tags": []gin.H{{"name": "wifi"}, {"name": "dns"}},
	})
	var both struct {
		Post models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &both))

	_, _ = doJSON(t, r, http.MethodPost, "/api/v1/posts", access, gin.H{
		"title": "just wifi", "body": "b", "tags": []gin.H{{"name": "wifi"}},
	})

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/posts/similar", "", gin.H{
		"tags": []gin.H{{"name": "wifi dns"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Items []struct {
			ID            uint    `json:"id"`
			MatchingTags  int     `json:"matching_tags"`
			MatchingScore float64 `json:"matching_score"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Items, 2)
	assert.Equal(t, both.Post.ID, data.Items[0].ID)
	assert.Equal(t, 2, data.Items[0].MatchingTags)
	assert.InDelta(t, 1.0, data.Items[0].MatchingScore, 1e-9)

	// an empty query is a validation error
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/posts/similar", "", gin.H{"tags": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTagEndpoints(t *testing.T) {
	r, _ := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/tags", access, gin.H{"name": "networking"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Tag models.Tag `json:"tag"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// same name resolves to the same tag
	_, env = doJSON(t, r, http.MethodPost, "/api/v1/tags", access, gin.H{"name": "networking"})
	var again struct {
		Tag models.Tag `json:"tag"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.Equal(t, created.Tag.ID, again.Tag.ID)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/tags?search=net", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// deleting tags is staff-only
	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/tags/%d", created.Tag.ID), access, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffOnlyUserListing(t *testing.T) {
	r, db := setupAPI(t)
	access, _ := registerAndLogin(t, r, "1001", "alice")

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/users", access, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// promote and re-login so the staff claim lands in the token
	require.NoError(t, db.Model(&models.User{}).Where("number = ?", "1001").
		Update("is_staff", true).Error)
	_, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"number": "1001", "password": "secret-pw",
	})
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/users", data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
