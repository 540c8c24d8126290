package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/models"
	"github.com/use-agent/snapscrape/scraper"
)

// Prompts returns a handler for GET /api/v1/prompts.
func Prompts(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.PromptsResponse{
			Default:   sc.DefaultDataType(),
			DataTypes: sc.DataTypes(),
		})
	}
}
