package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantwise/backend/internal/httputil"
	"github.com/grantwise/backend/internal/models"
	"golang.org/x/exp/slices"
)

// RegisterGrantRoutes registers the routes for grants with
// the RouterGroup that is passed.
func RegisterGrantRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsGrantList)
		r.GET("", GetGrants)
		r.POST("", CreateGrants)
	}

	// Grant with ID
	{
		r.OPTIONS("/:id", OptionsGrantDetail)
		r.GET("/:id", GetGrant)
		r.DELETE("/:id", DeleteGrant)
	}

	// Read-side views
	{
		r.OPTIONS("/:id/tree", OptionsGrantView)
		r.GET("/:id/tree", GetGrantTree)
		r.OPTIONS("/:id/rollup", OptionsGrantView)
		r.GET("/:id/rollup", GetGrantRollup)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Grants
// @Success		204
// @Router			/v1/grants [options]
func OptionsGrantList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Grants
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id} [options]
func OptionsGrantDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Grant{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetDelete(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Grants
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id}/tree [options]
func OptionsGrantView(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Grant{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGet(c)
}

// @Summary		Create grants
// @Description	Creates new grants
// @Tags			Grants
// @Accept			json
// @Produce		json
// @Success		201		{object}	GrantCreateResponse
// @Failure		400		{object}	GrantCreateResponse
// @Failure		500		{object}	GrantCreateResponse
// @Param			grants	body		[]GrantEditable	true	"Grants"
// @Router			/v1/grants [post]
func CreateGrants(c *gin.Context) {
	var editables []GrantEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), GrantCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := GrantCreateResponse{}

	for _, editable := range editables {
		grant := editable.model()

		err = models.DB.Create(&grant).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newGrant(c.GetString(string(models.DBContextURL)), grant)
		r.Data = append(r.Data, GrantResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get grants
// @Description	Returns a list of grants
// @Tags			Grants
// @Produce		json
// @Success		200	{object}	GrantListResponse
// @Failure		400	{object}	GrantListResponse
// @Failure		500	{object}	GrantListResponse
// @Router			/v1/grants [get]
// @Param			name	query	string	false	"Filter by name"
// @Param			note	query	string	false	"Filter by note"
// @Param			search	query	string	false	"Search for this text in name and note"
// @Param			offset	query	uint	false	"The offset of the first grant returned. Defaults to 0."
// @Param			limit	query	int		false	"Maximum number of grants to return. Defaults to 50."
func GetGrants(c *gin.Context) {
	var filter GrantQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	q := models.DB.
		Order("name ASC").
		Where(filter.model(), queryFields...)

	q = stringFilters(models.DB, q, setFields, filter.Name, filter.Note, filter.Search)

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 grants and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var grants []models.Grant
	err := q.Find(&grants).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GrantListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GrantListResponse{
			Error: &s,
		})
		return
	}

	url := c.GetString(string(models.DBContextURL))

	data := make([]Grant, 0, len(grants))
	for _, grant := range grants {
		data = append(data, newGrant(url, grant))
	}

	c.JSON(http.StatusOK, GrantListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get grant
// @Description	Returns a specific grant
// @Tags			Grants
// @Produce		json
// @Success		200	{object}	GrantResponse
// @Failure		400	{object}	GrantResponse
// @Failure		404	{object}	GrantResponse
// @Failure		500	{object}	GrantResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id} [get]
func GetGrant(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GrantResponse{
			Error: &s,
		})
		return
	}

	var grant models.Grant
	err = models.DB.First(&grant, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), GrantResponse{
			Error: &s,
		})
		return
	}

	data := newGrant(c.GetString(string(models.DBContextURL)), grant)
	c.JSON(http.StatusOK, GrantResponse{Data: &data})
}

// @Summary		Delete grant
// @Description	Deletes a grant with all its allocations and transactions
// @Tags			Grants
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id} [delete]
func DeleteGrant(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	var grant models.Grant
	err = models.DB.First(&grant, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = grant.DeleteWithResources(models.DB)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Get allocation tree
// @Description	Returns the allocation forest of the grant, materialized as parent to children links
// @Tags			Grants
// @Produce		json
// @Success		200	{object}	TreeResponse
// @Failure		400	{object}	TreeResponse
// @Failure		404	{object}	TreeResponse
// @Failure		500	{object}	TreeResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id}/tree [get]
func GetGrantTree(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TreeResponse{
			Error: &s,
		})
		return
	}

	var grant models.Grant
	err = models.DB.First(&grant, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TreeResponse{
			Error: &s,
		})
		return
	}

	roots, err := grant.AllocationTree(models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), TreeResponse{
			Error: &s,
		})
		return
	}

	data := make([]TreeNode, 0, len(roots))
	for _, root := range roots {
		data = append(data, newTreeNode(root))
	}

	c.JSON(http.StatusOK, TreeResponse{Data: data})
}

// @Summary		Get rollup
// @Description	Returns the aggregates for the grant: allocated and spent totals, remaining budget and percentages
// @Tags			Grants
// @Produce		json
// @Success		200	{object}	RollupResponse
// @Failure		400	{object}	RollupResponse
// @Failure		404	{object}	RollupResponse
// @Failure		500	{object}	RollupResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/grants/{id}/rollup [get]
func GetGrantRollup(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RollupResponse{
			Error: &s,
		})
		return
	}

	rollup, err := models.ComputeRollup(models.DB, uri.ID.UUID)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), RollupResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, RollupResponse{Data: &rollup})
}
