package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tlemarchand/shelfer/internal/database"
	"github.com/tlemarchand/shelfer/internal/models"
	"github.com/tlemarchand/shelfer/internal/reconcile"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func (s *Server) healthCheck(c *gin.Context) {
	if err := database.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) listItems(c *gin.Context) {
	limit, offset := pagination(c)

	query := s.db.Model(&models.CatalogItem{})
	if state := c.Query("download_state"); state != "" {
		query = query.Where("download_state = ?", state)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	var items []models.CatalogItem
	if err := query.Preload("Categories").
		Order("id").Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	data := make([]ItemResponse, 0, len(items))
	for i := range items {
		data = append(data, itemToResponse(&items[i]))
	}

	c.JSON(http.StatusOK, paginated(data, total, limit, offset))
}

func (s *Server) getItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id", Message: err.Error()})
		return
	}

	var item models.CatalogItem
	if err := s.db.Preload("Categories").First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "item not found"})
		return
	}

	c.JSON(http.StatusOK, itemToResponse(&item))
}

func (s *Server) listCategories(c *gin.Context) {
	query := s.db.Model(&models.Category{})
	if kind := c.Query("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var categories []models.Category
	if err := query.Order("name").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	data := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		data = append(data, categoryToResponse(&categories[i]))
	}

	c.JSON(http.StatusOK, gin.H{"categories": data})
}

func (s *Server) listRuns(c *gin.Context) {
	limit, offset := pagination(c)

	var total int64
	if err := s.db.Model(&models.OrganizeRun{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	var runs []models.OrganizeRun
	if err := s.db.Order("id desc").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	data := make([]RunResponse, 0, len(runs))
	for i := range runs {
		data = append(data, runToResponse(&runs[i]))
	}

	c.JSON(http.StatusOK, paginated(data, total, limit, offset))
}

func (s *Server) listCrawlLogs(c *gin.Context) {
	limit, offset := pagination(c)

	var total int64
	if err := s.db.Model(&models.CrawlLog{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	var logs []models.CrawlLog
	if err := s.db.Order("id desc").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "query failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, paginated(logs, total, limit, offset))
}

func (s *Server) triggerOrganize(c *gin.Context) {
	var req OrganizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	report, err := reconcile.RunFromConfig(s.db, req.DryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "organize failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginated(data interface{}, total int64, limit, offset int) PaginatedResponse {
	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		TotalPages: totalPages,
	}
}
