package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"control-produccion/models"
)

// SessionController handles HTTP requests for production sessions and
// the line items of their working sets
type SessionController struct {
	sessions SessionServiceInterface
	lines    LineItemServiceInterface
}

// NewSessionController creates a new SessionController
func NewSessionController(sessions SessionServiceInterface, lines LineItemServiceInterface) *SessionController {
	return &SessionController{
		sessions: sessions,
		lines:    lines,
	}
}

// Active handles GET /sessions/active
// Returns {"session": null} when the operator has nothing open.
func (sc *SessionController) Active(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	res, err := sc.sessions.FindActive(c.Request.Context(), op)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Start handles POST /sessions
// Example request:
// POST /sessions
// {
//   "parentBatch": "4019635",
//   "sheetCount": 10,
//   "machine": "SLITTER 2"
// }
// Responds 201 for a new session and 200 when the operator's open session
// on the same batch is resumed.
func (sc *SessionController) Start(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req models.StartSessionRequest
	if !bindJSON(c, &req, false) {
		return
	}

	res, err := sc.sessions.Start(c.Request.Context(), op, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// Finalize handles POST /sessions/:key/finalize
// Example request:
// POST /sessions/0192f4c8-.../finalize
// {
//   "physicalBatchCode": "B-7781",
//   "realWidth": 1218,
//   "observation": "Rebaba"
// }
// A session that was already closed answers 200 with status already_finalized.
func (sc *SessionController) Finalize(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req models.FinalizeRequest
	if !bindJSON(c, &req, false) {
		return
	}

	res, err := sc.sessions.Finalize(c.Request.Context(), op, c.Param("key"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Lines handles GET /sessions/:key/lines
func (sc *SessionController) Lines(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	res, err := sc.lines.Get(c.Request.Context(), op, c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AppendLine handles POST /sessions/:key/lines
// Example request: {"realWidth": 95}
// An empty body appends a zero-width line.
func (sc *SessionController) AppendLine(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req models.AppendLineRequest
	if !bindJSON(c, &req, true) {
		return
	}

	res, err := sc.lines.Append(c.Request.Context(), op, c.Param("key"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// EditLine handles PATCH /sessions/:key/lines/:line
// Example request: {"cutQty": 40, "destination": "VENTA"}
func (sc *SessionController) EditLine(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req models.EditLineRequest
	if !bindJSON(c, &req, false) {
		return
	}

	res, err := sc.lines.Edit(c.Request.Context(), op, c.Param("key"), c.Param("line"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RemoveLine handles DELETE /sessions/:key/lines/:line
func (sc *SessionController) RemoveLine(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	res, err := sc.lines.Remove(c.Request.Context(), op, c.Param("key"), c.Param("line"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
