package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"raffle/internal/models"
	"raffle/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/logger"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the raffle service.
type HTTPHandler struct {
	service *services.RaffleService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.RaffleService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// CreateDrawRequest is the body of POST /raffledraws.
type CreateDrawRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// EnterMemberRequest is one member entry.
type EnterMemberRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
}

// WinnerResponse is returned when a draw is closed.
type WinnerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	draws := router.Group("/raffledraws")
	draws.Use(ErrorMiddleware())
	{
		draws.POST("", h.CreateDraw)
		draws.GET("/winners", h.ListWinners)
		draws.GET("/winners/csv", h.ExportWinnersCSV)
		draws.GET("/:name", h.GetDraw)
		draws.POST("/:name/member", h.EnterMember)
		draws.POST("/:name/members", h.EnterMembers)
		draws.POST("/:name/members/csv", h.UploadMembersCSV)
		draws.POST("/:name/close", h.CloseDraw)
	}
}

// Health reports that the process is serving requests.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateDraw handles the creation of a new raffle draw.
func (h *HTTPHandler) CreateDraw(c *gin.Context) {
	var req CreateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Infof("Creating raffle draw %q", req.Name)
	if _, err := h.service.CreateDraw(c.Request.Context(), req.Name); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDraw returns a draw with its members and status.
func (h *HTTPHandler) GetDraw(c *gin.Context) {
	draw, err := h.service.Draw(c.Request.Context(), c.Param("name"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// EnterMember handles the entry of a single member into a draw.
func (h *HTTPHandler) EnterMember(c *gin.Context) {
	var req EnterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drawName := c.Param("name")
	logger.Infof("Adding member %s to raffle draw %q", req.Email, drawName)
	if _, err := h.service.EnterMember(c.Request.Context(), drawName, req.Name, req.Email); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EnterMembers handles the entry of a batch of members into a draw.
func (h *HTTPHandler) EnterMembers(c *gin.Context) {
	var req []EnterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drawName := c.Param("name")
	logger.Infof("Adding %d members to raffle draw %q", len(req), drawName)
	h.enterMembers(c, drawName, toMemberInputs(req))
}

// UploadMembersCSV handles a CSV upload of members, one "name,email" row each.
// A leading header row is skipped, as are rows without exactly two fields.
// Rows are validated like JSON entries; one invalid row rejects the upload.
func (h *HTTPHandler) UploadMembersCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("membersCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	drawName := c.Param("name")
	var inputs []models.MemberInput
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "error reading CSV: " + err.Error()})
			return
		}

		if len(record) != 2 {
			logger.Infof("Skipping malformed member CSV record: %v", record)
			continue
		}
		name, email := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(name, "name") && strings.EqualFold(email, "email") {
			continue
		}
		row := EnterMemberRequest{Name: name, Email: email}
		if err := binding.Validator.ValidateStruct(&row); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("CSV line %d: %v", line, err)})
			return
		}
		inputs = append(inputs, models.MemberInput{Name: name, Email: email})
	}

	logger.Infof("Adding %d members from CSV to raffle draw %q", len(inputs), drawName)
	h.enterMembers(c, drawName, inputs)
}

func (h *HTTPHandler) enterMembers(c *gin.Context, drawName string, inputs []models.MemberInput) {
	if _, err := h.service.EnterMembers(c.Request.Context(), drawName, inputs); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseDraw closes a draw and returns its winner.
func (h *HTTPHandler) CloseDraw(c *gin.Context) {
	drawName := c.Param("name")
	logger.Infof("Closing raffle draw %q", drawName)

	winner, err := h.service.CloseDraw(c.Request.Context(), drawName)
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.Infof("Raffle draw %q closed. Winner: %s", drawName, winner.Email)
	c.JSON(http.StatusOK, WinnerResponse{
		ID:    winner.ID,
		Name:  winner.Name,
		Email: winner.Email,
	})
}

// ListWinners returns the winners of all closed draws.
func (h *HTTPHandler) ListWinners(c *gin.Context) {
	winners, err := h.service.ListPastWinners(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// ExportWinnersCSV handles the request to download the past winners as a CSV file.
func (h *HTTPHandler) ExportWinnersCSV(c *gin.Context) {
	winners, err := h.service.ListPastWinners(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=raffle_winners.csv")
	c.Status(http.StatusOK)

	// Add BOM to ensure UTF-8 compatibility in Excel
	_, _ = c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"member_id", "raffle_draw_id", "name", "email", "entered_at"}); err != nil {
		logger.Errorf("Error writing CSV header: %v", err)
		return
	}
	for _, winner := range winners {
		row := []string{winner.MemberID, winner.DrawID, winner.Name, winner.Email, winner.CreatedAt.Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			logger.Errorf("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		logger.Errorf("Error flushing CSV writer: %v", err)
	}
}

func toMemberInputs(req []EnterMemberRequest) []models.MemberInput {
	inputs := make([]models.MemberInput, 0, len(req))
	for _, r := range req {
		inputs = append(inputs, models.MemberInput{Name: r.Name, Email: r.Email})
	}
	return inputs
}
