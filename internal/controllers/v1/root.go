package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantwise/backend/internal/httputil"
	"github.com/grantwise/backend/internal/models"
)

func RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.OPTIONS("", Options)
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Grants       string `json:"grants" example:"https://example.com/api/v1/grants"`             // URL of Grant collection endpoint
	Allocations  string `json:"allocations" example:"https://example.com/api/v1/allocations"`   // URL of Allocation collection endpoint
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions"` // URL of Transaction collection endpoint
	Export       string `json:"export" example:"https://example.com/api/v1/export"`             // URL of the export endpoint
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Grants:       url + "/v1/grants",
			Allocations:  url + "/v1/allocations",
			Transactions: url + "/v1/transactions",
			Export:       url + "/v1/export",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}
