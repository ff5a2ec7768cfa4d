package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/middleware"
	"github.com/inkwell-dev/inkwell/models"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// resolveActingUser maps the authenticated identity subject onto its
// provisioned user row.
func resolveActingUser(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	sub, ok := middleware.Subject(ctx)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := db.Where("sub = ?", sub).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// isUniqueViolation matches the duplicate-key errors of the supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || // postgres
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite, used in tests
}
