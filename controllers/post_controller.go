package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-dev/inkwell/models"
	"github.com/inkwell-dev/inkwell/utils"
)

// maxSlugAttempts bounds the collision retry loop; past this the create
// surfaces as a conflict.
const maxSlugAttempts = 50

// PostController manages post CRUD, cover uploads and reaction tallies.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// ListPosts returns paginated posts with author summary, comments and
// reaction tallies, plus the reaction sum across all posts.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := p.db.Model(&models.Post{})
	if v := strings.TrimSpace(ctx.Query("published")); v != "" {
		query = query.Where("published = ?", v == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := query.
		Preload("User").
		Preload("Comments").
		Preload("Reactions").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	var reactionSum int64
	if err := p.db.Model(&models.Reaction{}).Select("COALESCE(SUM(count), 0)").Scan(&reactionSum).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to sum reactions")
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, postView(&posts[i]))
	}

	utils.Success(ctx, gin.H{
		"items":          items,
		"reaction_total": reactionSum,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		},
	})
}

// GetPostBySlug returns the full post detail with threaded comments and
// per-type reaction counts.
func (p *PostController) GetPostBySlug(ctx *gin.Context) {
	slugParam := strings.TrimSpace(ctx.Param("slug"))
	if slugParam == "" {
		utils.Error(ctx, http.StatusBadRequest, 40020, "missing slug")
		return
	}

	cacheKey := "cache:post:detail:" + slugParam
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.Preload("User").Preload("Reactions").Where("slug = ?", slugParam).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.
		Where("post_id = ? AND parent_id IS NULL", post.ID).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at ASC") }).
		Preload("Replies.User").
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load comments")
		return
	}
	post.Comments = comments

	payload := gin.H{"post": postView(&post)}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// CreatePost allows authenticated, provisioned users to publish posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title      string `json:"title" binding:"required,min=1"`
		Content    string `json:"content" binding:"required"`
		Status     string `json:"status"`
		CoverImage string `json:"cover_image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	title := utils.SanitizeTitle(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)

	author, ok := resolveActingUser(ctx, p.db)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40402, "author not provisioned")
		return
	}

	post := models.Post{
		UserID:     author.ID,
		Title:      title,
		Content:    content,
		Published:  strings.EqualFold(req.Status, "published"),
		CoverImage: strings.TrimSpace(req.CoverImage),
	}

	// Insert, catch the unique violation and retry with a numeric suffix.
	// The unique index closes the race the loop alone cannot.
	base := slug.Make(title)
	created := false
	for i := 0; i <= maxSlugAttempts; i++ {
		if i == 0 {
			post.Slug = base
		} else {
			post.Slug = fmt.Sprintf("%s-%d", base, i)
		}
		err := p.db.Create(&post).Error
		if err == nil {
			created = true
			break
		}
		if !isUniqueViolation(err) {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to create post")
			return
		}
	}
	if !created {
		utils.Error(ctx, http.StatusConflict, 40901, "could not allocate a unique slug")
		return
	}

	post.User = *author
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Created(ctx, gin.H{"post": postView(&post)})
}

// UpdatePost allows the author to update their post. The slug stays stable
// so published links keep resolving.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		Status     string  `json:"status"`
		CoverImage *string `json:"cover_image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}

	post, status, code := p.loadOwnedPost(ctx)
	if post == nil {
		utils.Error(ctx, status, code, ownershipMessage(status))
		return
	}

	if title := utils.SanitizeTitle(strings.TrimSpace(req.Title)); title != "" {
		post.Title = title
	}
	if req.Content != "" {
		post.Content = utils.Sanitize(req.Content)
	}
	if req.Status != "" {
		post.Published = strings.EqualFold(req.Status, "published")
	}
	if req.CoverImage != nil {
		post.CoverImage = strings.TrimSpace(*req.CoverImage)
	}

	if err := p.db.Save(post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + post.Slug)
	utils.Success(ctx, gin.H{"post": postView(post)})
}

// DeletePost removes a post together with its comments and reactions.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, status, code := p.loadOwnedPost(ctx)
	if post == nil {
		utils.Error(ctx, status, code, ownershipMessage(status))
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + post.Slug)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// RecordReactions applies one upsert-increment per selected (post, type)
// pair. Deliberately not idempotent: this is a tally, not a per-user vote.
func (p *PostController) RecordReactions(ctx *gin.Context) {
	var req struct {
		Selections map[string][]string `json:"selections" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Selections) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	type pair struct {
		postID uint
		typ    string
	}
	pairs := make([]pair, 0, len(req.Selections))
	for idStr, types := range req.Selections {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40025, "invalid post id "+idStr)
			return
		}
		var count int64
		if err := p.db.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil || count == 0 {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found: "+idStr)
			return
		}
		for _, t := range types {
			if !models.ValidReactionType(t) {
				utils.Error(ctx, http.StatusBadRequest, 40026, "unknown reaction type "+t)
				return
			}
			pairs = append(pairs, pair{postID: uint(id), typ: t})
		}
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		for _, pr := range pairs {
			// Single atomic upsert; a read-modify-write pair would lose
			// updates under concurrent reactions on the same row.
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "post_id"}, {Name: "type"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"count":      gorm.Expr("count + 1"),
					"updated_at": time.Now(),
				}),
			}).Create(&models.Reaction{PostID: pr.postID, Type: pr.typ, Count: 1}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to record reactions")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:")
	utils.Success(ctx, gin.H{"message": "reactions recorded"})
}

// UploadCoverImage stores an uploaded image in object storage and returns its URL.
func (p *PostController) UploadCoverImage(ctx *gin.Context) {
	if _, ok := resolveActingUser(ctx, p.db); !ok {
		utils.Error(ctx, http.StatusNotFound, 40404, "author not provisioned")
		return
	}

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		file, header, err = ctx.Request.FormFile("file")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40027, "no file uploaded")
			return
		}
	}
	defer file.Close()

	const maxSize = 5 * 1024 * 1024
	if header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40028, "file size exceeds 5MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40029, "invalid file type, only images are allowed")
		return
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	url, err := utils.UploadImage(ctx.Request.Context(), key, contentType, file, header.Size)
	if err != nil {
		utils.Sugar.Errorf("cover upload failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store file")
		return
	}

	utils.Success(ctx, gin.H{"url": url})
}

// loadOwnedPost fetches the :id post and checks the acting user owns it.
// Returns nil plus the status/code to respond with on failure.
func (p *PostController) loadOwnedPost(ctx *gin.Context) (*models.Post, int, int) {
	postID := strings.TrimSpace(ctx.Param("id"))
	id, err := strconv.ParseUint(postID, 10, 32)
	if err != nil {
		return nil, http.StatusBadRequest, 40030
	}

	var post models.Post
	if err := p.db.First(&post, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusNotFound, 40405
		}
		return nil, http.StatusInternalServerError, 50031
	}

	actor, ok := resolveActingUser(ctx, p.db)
	if !ok {
		return nil, http.StatusUnauthorized, 40110
	}
	if post.UserID != actor.ID {
		return nil, http.StatusForbidden, 40301
	}
	return &post, 0, 0
}

func ownershipMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid post id"
	case http.StatusNotFound:
		return "post not found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "you can only modify your own posts"
	default:
		return "failed to load post"
	}
}

// postView renders a post with its author summary and reaction tallies,
// defaulting absent reaction types to zero.
func postView(post *models.Post) gin.H {
	reactions := make(map[string]int64, len(models.ReactionTypes))
	for _, t := range models.ReactionTypes {
		reactions[t] = 0
	}
	for _, r := range post.Reactions {
		reactions[r.Type] = r.Count
	}

	view := gin.H{
		"id":          post.ID,
		"title":       post.Title,
		"slug":        post.Slug,
		"content":     post.Content,
		"published":   post.Published,
		"cover_image": post.CoverImage,
		"created_at":  post.CreatedAt,
		"updated_at":  post.UpdatedAt,
		"author":      post.User.Summary(),
		"comments":    post.Comments,
		"reactions":   reactions,
	}
	return view
}
