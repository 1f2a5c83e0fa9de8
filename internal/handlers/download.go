// internal/handlers/download.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopora/shopora-backend/internal/middleware"
	"github.com/shopora/shopora-backend/internal/services"
	"github.com/shopora/shopora-backend/internal/utils"
)

type DownloadHandler struct {
	downloadService *services.DownloadService
}

func NewDownloadHandler(downloadService *services.DownloadService) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
	}
}

// GET /downloads/:productId
func (h *DownloadHandler) GetDownloadLink(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	link, err := h.downloadService.GetDownloadLink(principal, productID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, link)
}
