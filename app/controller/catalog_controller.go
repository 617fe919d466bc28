package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"control-produccion/models"
)

// CatalogController handles HTTP requests for the order catalog
type CatalogController struct {
	catalog CatalogServiceInterface
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalog CatalogServiceInterface) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// Machines handles GET /machines
// Example response:
// {"machines": ["CORTADORA 1", "SLITTER 2"]}
func (cc *CatalogController) Machines(c *gin.Context) {
	res, err := cc.catalog.Machines(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Orders handles GET /batches/:parent/orders
func (cc *CatalogController) Orders(c *gin.Context) {
	res, err := cc.catalog.Orders(c.Request.Context(), c.Param("parent"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Import handles POST /catalog/orders
// Example request:
// POST /catalog/orders
// {
//   "orders": [
//     {"childOrderId": "4019635-01", "machineName": "SLITTER 2", "targetSheetCount": 100,
//      "sheetWidthCapacity": 1220, "width": 120, "cutCount": 2, "destination": "PLEGADO"}
//   ]
// }
func (cc *CatalogController) Import(c *gin.Context) {
	var req models.CatalogImportRequest
	if !bindJSON(c, &req, false) {
		return
	}

	res, err := cc.catalog.Import(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
