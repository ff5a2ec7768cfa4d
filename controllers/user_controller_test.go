package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/models"
)

func newUserRouter(db *gorm.DB, sub string) *gin.Engine {
	uc := NewUserController(db)
	r := gin.New()
	r.POST("/users", asIdentity(sub), uc.ProvisionUser)
	r.GET("/users/:sub", uc.GetProfile)
	r.GET("/users/:sub/posts", uc.GetUserPosts)
	r.PUT("/users/:id", uc.UpdateUser)
	r.DELETE("/users/:id", uc.DeleteUser)
	r.POST("/users/:sub/bio", asIdentity(sub), uc.UpdateBio)
	r.POST("/users/:sub/pic", asIdentity(sub), uc.UpdateProfilePicture)
	return r
}

func TestProvisionUserIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	r := newUserRouter(db, "sub-new")

	body := gin.H{"email": "writer@example.com", "username": "writer"}
	first := doJSON(t, r, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, first.Code)
	firstID := decodeData(t, first)["user"].(map[string]interface{})["id"]

	second := doJSON(t, r, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusOK, second.Code)
	secondID := decodeData(t, second)["user"].(map[string]interface{})["id"]

	assert.Equal(t, firstID, secondID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProvisionUserDerivesUsernameFromEmail(t *testing.T) {
	db := newTestDB(t)
	r := newUserRouter(db, "sub-derived")

	w := doJSON(t, r, http.MethodPost, "/users", gin.H{"email": "quill@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, db.Where("sub = ?", "sub-derived").First(&user).Error)
	assert.Equal(t, "quill", user.Username)
}

func TestGetProfileBySubOrID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "sub-lookup", "lookup")
	r := newUserRouter(db, "")

	bySub := doJSON(t, r, http.MethodGet, "/users/sub-lookup", nil)
	require.Equal(t, http.StatusOK, bySub.Code)

	byID := doJSON(t, r, http.MethodGet, "/users/1", nil)
	require.Equal(t, http.StatusOK, byID.Code)
	got := decodeData(t, byID)["user"].(map[string]interface{})
	assert.Equal(t, user.Username, got["username"])
}

func TestGetProfileNotFound(t *testing.T) {
	db := newTestDB(t)
	r := newUserRouter(db, "")

	w := doJSON(t, r, http.MethodGet, "/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserPostsFiltersPublished(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "sub-prolific", "prolific")
	require.NoError(t, db.Create(&models.Post{UserID: user.ID, Title: "Live", Slug: "live", Content: "a", Published: true}).Error)
	require.NoError(t, db.Create(&models.Post{UserID: user.ID, Title: "Draft", Slug: "draft", Content: "b", Published: false}).Error)
	r := newUserRouter(db, "")

	w := doJSON(t, r, http.MethodGet, "/users/sub-prolific/posts?published=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	items := decodeData(t, w)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Live", items[0].(map[string]interface{})["title"])
}

func TestUpdateBioRejectsOtherUsers(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "sub-owner", "owner")
	createTestUser(t, db, "sub-other", "other")
	r := newUserRouter(db, "sub-other")

	w := doJSON(t, r, http.MethodPost, "/users/sub-owner/bio", gin.H{"bio": "hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)

	var owner models.User
	require.NoError(t, db.Where("sub = ?", "sub-owner").First(&owner).Error)
	assert.Empty(t, owner.Bio)
}

func TestUpdateBioSelf(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "sub-owner", "owner")
	r := newUserRouter(db, "sub-owner")

	w := doJSON(t, r, http.MethodPost, "/users/sub-owner/bio", gin.H{"bio": "writes about Go"})
	require.Equal(t, http.StatusOK, w.Code)

	var owner models.User
	require.NoError(t, db.Where("sub = ?", "sub-owner").First(&owner).Error)
	assert.Equal(t, "writes about Go", owner.Bio)
}

func TestDeleteUserDetachesComments(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "sub-leaving", "leaving")
	post := &models.Post{UserID: user.ID, Title: "Left Behind", Slug: "left-behind", Content: "body"}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: &user.ID, Content: "bye"}).Error)
	r := newUserRouter(db, "")

	w := doJSON(t, r, http.MethodDelete, "/users/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comment models.Comment
	require.NoError(t, db.First(&comment).Error)
	assert.Nil(t, comment.UserID)
}
