package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BatchController handles HTTP requests for batch progress
type BatchController struct {
	quota QuotaServiceInterface
}

// NewBatchController creates a new BatchController
func NewBatchController(quota QuotaServiceInterface) *BatchController {
	return &BatchController{quota: quota}
}

// Status handles GET /batches/:parent/status
// Example response:
// {
//   "quota": {"parentBatchId": "4019635", "meta": 100, "finalized": 40, "inProcess": 10, "remaining": 60},
//   "displayRemaining": 50,
//   "complete": false,
//   "progressPct": 40,
//   "workers": [{"operatorName": "Luis", "machine": "SLITTER 2", "minutesElapsed": 35, ...}]
// }
func (bc *BatchController) Status(c *gin.Context) {
	res, err := bc.quota.Status(c.Request.Context(), c.Param("parent"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
