package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantwise/backend/internal/httputil"
	"github.com/grantwise/backend/internal/models"
	"golang.org/x/exp/slices"
)

var errGrantImmutable = errors.New("the grant of an existing resource cannot be changed")

// RegisterAllocationRoutes registers the routes for allocations with
// the RouterGroup that is passed.
func RegisterAllocationRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsAllocationList)
		r.GET("", GetAllocations)
		r.POST("", CreateAllocations)
	}

	// Allocation with ID
	{
		r.OPTIONS("/:id", OptionsAllocationDetail)
		r.GET("/:id", GetAllocation)
		r.PATCH("/:id", UpdateAllocation)
		r.DELETE("/:id", DeleteAllocation)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Allocations
// @Success		204
// @Router			/v1/allocations [options]
func OptionsAllocationList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Allocations
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/allocations/{id} [options]
func OptionsAllocationDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Allocation{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create allocations
// @Description	Creates new allocations. The amount of each allocation must fit the remaining budget of its parent, or of the grant for top-level allocations.
// @Tags			Allocations
// @Accept			json
// @Produce		json
// @Success		201			{object}	AllocationCreateResponse
// @Failure		400			{object}	AllocationCreateResponse
// @Failure		404			{object}	AllocationCreateResponse
// @Failure		409			{object}	AllocationCreateResponse
// @Failure		500			{object}	AllocationCreateResponse
// @Param			allocations	body		[]AllocationEditable	true	"Allocations"
// @Router			/v1/allocations [post]
func CreateAllocations(c *gin.Context) {
	var editables []AllocationEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), AllocationCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := AllocationCreateResponse{}

	for _, editable := range editables {
		allocation := editable.model()

		// The budget checks run in the hooks, inside the same transaction
		// as the insert
		err = models.DB.Create(&allocation).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newAllocation(c.GetString(string(models.DBContextURL)), allocation)
		r.Data = append(r.Data, AllocationResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get allocations
// @Description	Returns a list of allocations
// @Tags			Allocations
// @Produce		json
// @Success		200	{object}	AllocationListResponse
// @Failure		400	{object}	AllocationListResponse
// @Failure		500	{object}	AllocationListResponse
// @Router			/v1/allocations [get]
// @Param			grant		query	string	false	"Filter by grant ID"
// @Param			parent		query	string	false	"Filter by parent allocation ID"
// @Param			topLevel	query	bool	false	"Only return top-level allocations"
// @Param			name		query	string	false	"Filter by name"
// @Param			note		query	string	false	"Filter by note"
// @Param			search		query	string	false	"Search for this text in name and note"
// @Param			offset		query	uint	false	"The offset of the first allocation returned. Defaults to 0."
// @Param			limit		query	int		false	"Maximum number of allocations to return. Defaults to 50."
func GetAllocations(c *gin.Context) {
	var filter AllocationQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	q := models.DB.
		Order("name ASC").
		Where(filter.model(), queryFields...)

	q = stringFilters(models.DB, q, setFields, filter.Name, filter.Note, filter.Search)

	if slices.Contains(setFields, "ParentAllocationID") {
		q = q.Where("parent_allocation_id = ?", filter.ParentAllocationID.UUID)
	}

	if filter.TopLevel {
		q = q.Where("parent_allocation_id IS NULL")
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 allocations and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var allocations []models.Allocation
	err := q.Find(&allocations).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationListResponse{
			Error: &s,
		})
		return
	}

	url := c.GetString(string(models.DBContextURL))

	data := make([]Allocation, 0, len(allocations))
	for _, allocation := range allocations {
		data = append(data, newAllocation(url, allocation))
	}

	c.JSON(http.StatusOK, AllocationListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get allocation
// @Description	Returns a specific allocation
// @Tags			Allocations
// @Produce		json
// @Success		200	{object}	AllocationResponse
// @Failure		400	{object}	AllocationResponse
// @Failure		404	{object}	AllocationResponse
// @Failure		500	{object}	AllocationResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/allocations/{id} [get]
func GetAllocation(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	var allocation models.Allocation
	err = models.DB.First(&allocation, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	data := newAllocation(c.GetString(string(models.DBContextURL)), allocation)
	c.JSON(http.StatusOK, AllocationResponse{Data: &data})
}

// @Summary		Update allocation
// @Description	Updates an existing allocation. Only values to be updated need to be specified. The budget checks are re-run for amount and parent changes.
// @Tags			Allocations
// @Accept			json
// @Produce		json
// @Success		200			{object}	AllocationResponse
// @Failure		400			{object}	AllocationResponse
// @Failure		404			{object}	AllocationResponse
// @Failure		409			{object}	AllocationResponse
// @Failure		500			{object}	AllocationResponse
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			allocation	body		AllocationEditable	true	"Allocation"
// @Router			/v1/allocations/{id} [patch]
func UpdateAllocation(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	var allocation models.Allocation
	err = models.DB.First(&allocation, uri.ID).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	// Get the fields that are set to be updated
	updateFields, err := httputil.GetBodyFields(c, AllocationEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	// An allocation can never move to another grant
	if slices.Contains(updateFields, any("GrantID")) {
		s := errGrantImmutable.Error()
		c.JSON(http.StatusBadRequest, AllocationResponse{
			Error: &s,
		})
		return
	}

	// Bind the update for the patch
	var update AllocationEditable
	err = httputil.BindData(c, &update)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Model(&allocation).Select("", updateFields...).Updates(update.model()).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AllocationResponse{
			Error: &s,
		})
		return
	}

	data := newAllocation(c.GetString(string(models.DBContextURL)), allocation)
	c.JSON(http.StatusOK, AllocationResponse{Data: &data})
}

// @Summary		Delete allocation
// @Description	Deletes an allocation, all allocations nested under it and the transactions recorded against any of them
// @Tags			Allocations
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/allocations/{id} [delete]
func DeleteAllocation(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	var allocation models.Allocation
	err = models.DB.First(&allocation, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = allocation.DeleteSubtree(models.DB)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
