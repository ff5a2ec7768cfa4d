package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/models"
	"github.com/inkwell-dev/inkwell/utils"
)

// CommentController manages the two-level comment tree under posts.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type commentRequest struct {
	Content string `json:"content" binding:"required,min=1"`
	Sub     string `json:"sub"`
}

// ListComments returns the top-level comments of a post with their replies.
// Replies never appear at the top level, only nested under their parents.
func (cc *CommentController) ListComments(ctx *gin.Context) {
	postID, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("postId")), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid post id")
		return
	}

	var exists int64
	if err := cc.db.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil || exists == 0 {
		utils.Error(ctx, http.StatusNotFound, 40410, "post not found")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	base := cc.db.Model(&models.Comment{}).Where("post_id = ? AND parent_id IS NULL", postID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count comments")
		return
	}

	var comments []models.Comment
	if err := cc.db.
		Where("post_id = ? AND parent_id IS NULL", postID).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at ASC") }).
		Preload("Replies.User").
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{
		"comments": comments,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		},
	})
}

// CreateComment adds a top-level comment to the post named by :slug.
// Anonymous comments are allowed; a sub in the body attributes the comment
// to that provisioned user.
func (cc *CommentController) CreateComment(ctx *gin.Context) {
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}

	post, ok := cc.findPostBySlug(ctx)
	if !ok {
		return
	}

	var userID *uint
	if sub := strings.TrimSpace(req.Sub); sub != "" {
		var user models.User
		if err := cc.db.Where("sub = ?", sub).First(&user).Error; err != nil {
			utils.Error(ctx, http.StatusNotFound, 40411, "user not found")
			return
		}
		userID = &user.ID
	}

	cc.insertComment(ctx, post.ID, userID, nil, req.Content)
}

// CreateReply adds a reply under a top-level comment. Replies to replies are
// rejected to keep the tree two levels deep.
func (cc *CommentController) CreateReply(ctx *gin.Context) {
	var req struct {
		commentRequest
		ParentID uint `json:"parent_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}

	post, ok := cc.findPostBySlug(ctx)
	if !ok {
		return
	}

	var parent models.Comment
	if err := cc.db.First(&parent, req.ParentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "parent comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load parent comment")
		return
	}
	if parent.PostID != post.ID {
		utils.Error(ctx, http.StatusBadRequest, 40043, "parent comment belongs to another post")
		return
	}
	if !parent.TopLevel() {
		utils.Error(ctx, http.StatusBadRequest, 40044, "replies to replies are not allowed")
		return
	}

	var userID *uint
	if sub := strings.TrimSpace(req.Sub); sub != "" {
		var user models.User
		if err := cc.db.Where("sub = ?", sub).First(&user).Error; err != nil {
			utils.Error(ctx, http.StatusNotFound, 40413, "user not found")
			return
		}
		userID = &user.ID
	}

	cc.insertComment(ctx, post.ID, userID, &parent.ID, req.Content)
}

// CreateUserComment adds a top-level comment attributed to the caller's
// verified identity rather than a body-supplied sub.
func (cc *CommentController) CreateUserComment(ctx *gin.Context) {
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid request payload")
		return
	}

	post, ok := cc.findPostBySlug(ctx)
	if !ok {
		return
	}

	user, ok := resolveActingUser(ctx, cc.db)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40414, "user not provisioned")
		return
	}

	cc.insertComment(ctx, post.ID, &user.ID, nil, req.Content)
}

// UpdateComment replaces the content of an existing comment.
func (cc *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40046, "invalid request payload")
		return
	}

	comment, ok := cc.findCommentByID(ctx)
	if !ok {
		return
	}

	comment.Content = utils.Sanitize(req.Content)
	if err := cc.db.Save(comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to update comment")
		return
	}

	cc.invalidatePostCache(comment.PostID)
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment and, for top-level comments, its replies.
func (cc *CommentController) DeleteComment(ctx *gin.Context) {
	comment, ok := cc.findCommentByID(ctx)
	if !ok {
		return
	}

	err := cc.db.Transaction(func(tx *gorm.DB) error {
		if comment.TopLevel() {
			if err := tx.Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(comment).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete comment")
		return
	}

	cc.invalidatePostCache(comment.PostID)
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func (cc *CommentController) insertComment(ctx *gin.Context, postID uint, userID, parentID *uint, content string) {
	comment := models.Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: parentID,
		Content:  utils.Sanitize(content),
	}
	if err := cc.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to create comment")
		return
	}
	if userID != nil {
		cc.db.Preload("User").First(&comment, comment.ID)
	}

	cc.invalidatePostCache(postID)
	utils.Created(ctx, gin.H{"comment": comment})
}

func (cc *CommentController) findPostBySlug(ctx *gin.Context) (*models.Post, bool) {
	slugParam := strings.TrimSpace(ctx.Param("slug"))
	var post models.Post
	if err := cc.db.Where("slug = ?", slugParam).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40415, "post not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to load post")
		return nil, false
	}
	return &post, true
}

func (cc *CommentController) findCommentByID(ctx *gin.Context) (*models.Comment, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40047, "invalid comment id")
		return nil, false
	}
	var comment models.Comment
	if err := cc.db.First(&comment, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40416, "comment not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to load comment")
		return nil, false
	}
	return &comment, true
}

func (cc *CommentController) invalidatePostCache(postID uint) {
	var slugVal string
	if err := cc.db.Model(&models.Post{}).Where("id = ?", postID).Pluck("slug", &slugVal).Error; err == nil && slugVal != "" {
		utils.InvalidateByPrefix("cache:post:detail:" + slugVal)
	}
}
