package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"partscope/internal/inventory"
	"partscope/internal/models"
	"partscope/internal/store"
	"partscope/internal/vision"
)

type predictRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

type uploadRequest struct {
	Items []inventory.UploadEntry `json:"items" binding:"required,min=1"`
}

type classifyRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Status      *string `json:"status" binding:"omitempty,status"`
	Owner       *string `json:"owner"`
	Notes       *string `json:"notes"`
	AppendNotes bool    `json:"append_notes"`
}

func (r updateRequest) patch() models.ItemUpdate {
	return models.ItemUpdate{
		Name:        r.Name,
		Status:      r.Status,
		Owner:       r.Owner,
		Notes:       r.Notes,
		AppendNotes: r.AppendNotes,
	}
}

type batchUpdateRequest struct {
	updateRequest
	ItemIDs []string `json:"item_ids" binding:"required,min=1"`
}

type idSetRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required,min=1"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	score, label, err := s.svc.Predict(c.Request.Context(), req.ImageBase64)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score, "label": label})
}

func (s *Server) handleListInventory(c *gin.Context) {
	items, err := s.svc.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemList(items))
}

// handleUpload persists each entry sequentially; the batch is not atomic,
// entries stored before an invalid one stay.
func (s *Server) handleUpload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := s.svc.Upload(c.Request.Context(), req.Items)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemList(items))
}

func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	items, err := s.svc.Classify(c.Request.Context(), req.ItemIDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemList(items))
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := s.svc.PartialUpdate(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleBatchUpdate(c *gin.Context) {
	var req batchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := s.svc.BatchUpdate(c.Request.Context(), req.ItemIDs, req.patch())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemList(items))
}

func (s *Server) handleBatchDelete(c *gin.Context) {
	var req idSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := s.svc.BatchDelete(c.Request.Context(), req.ItemIDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted"})
}

func (s *Server) handleInsights(c *gin.Context) {
	var req idSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	insights, missing, err := s.svc.Insights(c.Request.Context(), req.ItemIDs)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights, "missing": missing})
}

func (s *Server) handlePredictionHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := s.predictions.Recent(limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.PredictionLog{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByUsername(req.Username)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.auth.Issue(user.Username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *inventory.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, vision.ErrDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse image. Ensure it is a valid image file."})
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
	default:
		s.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// itemList normalizes a nil slice so callers always see a JSON array.
func itemList(items []models.InventoryItem) []models.InventoryItem {
	if items == nil {
		return []models.InventoryItem{}
	}
	return items
}
