package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/middleware"
	"github.com/inkwell-dev/inkwell/models"
	"github.com/inkwell-dev/inkwell/utils"
)

// UserController manages local profile rows for identities owned by the
// hosted provider.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// ProvisionUser creates the local profile row for the caller's identity.
// Provisioning is idempotent: an already-provisioned subject gets its
// existing row back with 200 instead of a duplicate.
func (u *UserController) ProvisionUser(ctx *gin.Context) {
	var req struct {
		Sub      string `json:"sub"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	sub, _ := middleware.Subject(ctx)
	if s := strings.TrimSpace(req.Sub); s != "" {
		sub = s
	}
	if sub == "" {
		utils.Error(ctx, http.StatusBadRequest, 40061, "missing subject")
		return
	}

	var existing models.User
	if err := u.db.Where("sub = ?", sub).First(&existing).Error; err == nil {
		utils.Success(ctx, gin.H{"user": existing})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		if at := strings.IndexByte(req.Email, '@'); at > 0 {
			username = req.Email[:at]
		} else {
			username = "user-" + sub[:min(8, len(sub))]
		}
	}

	user := models.User{
		Sub:      sub,
		Email:    strings.TrimSpace(req.Email),
		Username: utils.SanitizeTitle(username),
	}
	if err := u.db.Create(&user).Error; err != nil {
		// Concurrent provisioning of the same subject; return the row the
		// winner inserted.
		if isUniqueViolation(err) {
			if err := u.db.Where("sub = ?", sub).First(&existing).Error; err == nil {
				utils.Success(ctx, gin.H{"user": existing})
				return
			}
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to provision user")
		return
	}

	utils.Created(ctx, gin.H{"user": user})
}

// GetProfile returns a user's profile by subject identifier, falling back
// to the internal numeric id.
func (u *UserController) GetProfile(ctx *gin.Context) {
	key := strings.TrimSpace(ctx.Param("sub"))
	if key == "" {
		utils.Error(ctx, http.StatusBadRequest, 40062, "missing user identifier")
		return
	}

	var user models.User
	err := u.db.Where("sub = ?", key).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, convErr := strconv.ParseUint(key, 10, 32); convErr == nil {
			err = u.db.First(&user, uint(id)).Error
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load user")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// GetUserPosts lists one author's posts with optional published and search
// filters.
func (u *UserController) GetUserPosts(ctx *gin.Context) {
	user, ok := u.findUserByKey(ctx)
	if !ok {
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := u.db.Model(&models.Post{}).Where("user_id = ?", user.ID)
	if v := strings.TrimSpace(ctx.Query("published")); v != "" {
		query = query.Where("published = ?", v == "true")
	}
	if search := strings.TrimSpace(ctx.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := query.
		Preload("Reactions").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to list posts")
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		posts[i].User = *user
		items = append(items, postView(&posts[i]))
	}

	utils.Success(ctx, gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages(total, pageSize),
		},
	})
}

// UpdateBio changes the caller's own bio.
func (u *UserController) UpdateBio(ctx *gin.Context) {
	var req struct {
		Bio string `json:"bio" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40063, "invalid request payload")
		return
	}

	user, ok := u.requireSelf(ctx)
	if !ok {
		return
	}

	user.Bio = utils.Sanitize(req.Bio)
	if err := u.db.Save(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to update bio")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfilePicture changes the caller's own profile picture URL.
func (u *UserController) UpdateProfilePicture(ctx *gin.Context) {
	var req struct {
		ProfilePicture string `json:"profile_picture" binding:"required,url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40064, "invalid request payload")
		return
	}

	user, ok := u.requireSelf(ctx)
	if !ok {
		return
	}

	user.ProfilePicture = strings.TrimSpace(req.ProfilePicture)
	if err := u.db.Save(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to update profile picture")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// UpdateUser updates mutable profile fields of the user named by :id.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Bio      string `json:"bio"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40065, "invalid request payload")
		return
	}

	user, ok := u.findUserByNumericID(ctx)
	if !ok {
		return
	}

	if v := strings.TrimSpace(req.Email); v != "" {
		user.Email = v
	}
	if v := utils.SanitizeTitle(strings.TrimSpace(req.Username)); v != "" {
		user.Username = v
	}
	if req.Bio != "" {
		user.Bio = utils.Sanitize(req.Bio)
	}

	if err := u.db.Save(user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to update user")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// DeleteUser removes the user row. Comments are detached first so they
// survive as anonymous; the author's posts follow the row via the database
// constraint.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	user, ok := u.findUserByNumericID(ctx)
	if !ok {
		return
	}

	err := u.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50067, "failed to delete user")
		return
	}

	utils.Success(ctx, gin.H{"message": "user deleted"})
}

// requireSelf resolves the :sub user and checks it is the caller.
func (u *UserController) requireSelf(ctx *gin.Context) (*models.User, bool) {
	target := strings.TrimSpace(ctx.Param("sub"))
	actorSub, ok := middleware.Subject(ctx)
	if !ok || actorSub == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return nil, false
	}
	if target != actorSub {
		utils.Error(ctx, http.StatusForbidden, 40310, "you can only modify your own profile")
		return nil, false
	}

	var user models.User
	if err := u.db.Where("sub = ?", actorSub).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40421, "user not provisioned")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50068, "failed to load user")
		return nil, false
	}
	return &user, true
}

func (u *UserController) findUserByKey(ctx *gin.Context) (*models.User, bool) {
	key := strings.TrimSpace(ctx.Param("sub"))
	var user models.User
	err := u.db.Where("sub = ?", key).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, convErr := strconv.ParseUint(key, 10, 32); convErr == nil {
			err = u.db.First(&user, uint(id)).Error
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40422, "user not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50069, "failed to load user")
		return nil, false
	}
	return &user, true
}

func (u *UserController) findUserByNumericID(ctx *gin.Context) (*models.User, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40066, "invalid user id")
		return nil, false
	}
	var user models.User
	if err := u.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40423, "user not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load user")
		return nil, false
	}
	return &user, true
}
