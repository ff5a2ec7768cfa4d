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

func newCommentRouter(db *gorm.DB, sub string) *gin.Engine {
	cc := NewCommentController(db)
	r := gin.New()
	r.GET("/comments/:postId", cc.ListComments)
	r.POST("/comments/:slug", cc.CreateComment)
	r.POST("/comments/:slug/reply", cc.CreateReply)
	r.POST("/comments/:slug/user", asIdentity(sub), cc.CreateUserComment)
	r.PUT("/comments/:id", cc.UpdateComment)
	r.DELETE("/comments/:id", cc.DeleteComment)
	return r
}

func seedPost(t *testing.T, db *gorm.DB) *models.Post {
	t.Helper()
	author := createTestUser(t, db, "sub-author", "author")
	post := &models.Post{UserID: author.ID, Title: "Discussed", Slug: "discussed", Content: "body", Published: true}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestCreateCommentAnonymous(t *testing.T) {
	db := newTestDB(t)
	seedPost(t, db)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodPost, "/comments/discussed", gin.H{"content": "drive-by remark"})
	require.Equal(t, http.StatusCreated, w.Code)

	var comment models.Comment
	require.NoError(t, db.First(&comment).Error)
	assert.Nil(t, comment.UserID)
	assert.Nil(t, comment.ParentID)
	assert.Equal(t, "drive-by remark", comment.Content)
}

func TestCreateCommentUnknownPost(t *testing.T) {
	db := newTestDB(t)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodPost, "/comments/missing", gin.H{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUserCommentAttributesCaller(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	commenter := createTestUser(t, db, "sub-commenter", "commenter")
	r := newCommentRouter(db, "sub-commenter")

	w := doJSON(t, r, http.MethodPost, "/comments/discussed/user", gin.H{"content": "signed remark"})
	require.Equal(t, http.StatusCreated, w.Code)

	var comment models.Comment
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&comment).Error)
	require.NotNil(t, comment.UserID)
	assert.Equal(t, commenter.ID, *comment.UserID)
}

func TestCreateReplyNestsUnderParent(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	parent := &models.Comment{PostID: post.ID, Content: "top"}
	require.NoError(t, db.Create(parent).Error)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodPost, "/comments/discussed/reply", gin.H{
		"content": "nested", "parent_id": parent.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reply models.Comment
	require.NoError(t, db.Where("parent_id = ?", parent.ID).First(&reply).Error)
	assert.Equal(t, post.ID, reply.PostID)
}

func TestCreateReplyRejectsReplyToReply(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	parent := &models.Comment{PostID: post.ID, Content: "top"}
	require.NoError(t, db.Create(parent).Error)
	reply := &models.Comment{PostID: post.ID, ParentID: &parent.ID, Content: "nested"}
	require.NoError(t, db.Create(reply).Error)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodPost, "/comments/discussed/reply", gin.H{
		"content": "too deep", "parent_id": reply.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReplyRejectsForeignParent(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	other := &models.Post{UserID: post.UserID, Title: "Other", Slug: "other", Content: "body"}
	require.NoError(t, db.Create(other).Error)
	parent := &models.Comment{PostID: other.ID, Content: "elsewhere"}
	require.NoError(t, db.Create(parent).Error)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodPost, "/comments/discussed/reply", gin.H{
		"content": "misplaced", "parent_id": parent.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCommentsReturnsOnlyTopLevelWithReplies(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	first := &models.Comment{PostID: post.ID, Content: "first"}
	require.NoError(t, db.Create(first).Error)
	second := &models.Comment{PostID: post.ID, Content: "second"}
	require.NoError(t, db.Create(second).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, ParentID: &first.ID, Content: "reply"}).Error)

	r := newCommentRouter(db, "")
	w := doJSON(t, r, http.MethodGet, "/comments/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	comments := data["comments"].([]interface{})
	require.Len(t, comments, 2)

	top := comments[0].(map[string]interface{})
	assert.Equal(t, "first", top["content"])
	replies := top["replies"].([]interface{})
	require.Len(t, replies, 1)
	assert.Equal(t, "reply", replies[0].(map[string]interface{})["content"])

	// The reply never shows up as its own top-level entry.
	assert.Equal(t, "second", comments[1].(map[string]interface{})["content"])
}

func TestListCommentsUnknownPost(t *testing.T) {
	db := newTestDB(t)
	r := newCommentRouter(db, "")

	w := doJSON(t, r, http.MethodGet, "/comments/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTopLevelCommentRemovesReplies(t *testing.T) {
	db := newTestDB(t)
	post := seedPost(t, db)
	parent := &models.Comment{PostID: post.ID, Content: "top"}
	require.NoError(t, db.Create(parent).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, ParentID: &parent.ID, Content: "reply"}).Error)

	r := newCommentRouter(db, "")
	w := doJSON(t, r, http.MethodDelete, "/comments/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}
