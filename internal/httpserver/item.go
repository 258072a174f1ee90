package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (a *api) getItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody("validation", "itemId must be a positive integer"))
		return
	}
	item, err := a.deps.Items.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
