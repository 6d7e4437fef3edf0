// Package server exposes the employee bill API over HTTP.
package server

import (
	"net/http"
	"strings"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/export"
	"github.com/billed-fr/billed-server/internal/identity"
	"github.com/billed-fr/billed-server/internal/listing"
	"github.com/billed-fr/billed-server/internal/nav"
	"github.com/billed-fr/billed-server/internal/submission"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wires the listing pipeline, the submission sessions and the
// export onto gin handlers.
type Server struct {
	store    billstore.Store
	pipeline *listing.Pipeline
	sessions *SessionManager
	exporter *export.Exporter
	history  *nav.History
	logger   *zap.Logger
}

// New creates the HTTP server component.
func New(store billstore.Store, history *nav.History, logger *zap.Logger) *Server {
	return &Server{
		store:    store,
		pipeline: listing.NewPipeline(store, logger.With(zap.String("component", "listing"))),
		sessions: NewSessionManager(store, history, logger),
		exporter: export.NewExporter(logger.With(zap.String("component", "export"))),
		history:  history,
		logger:   logger,
	}
}

// Register mounts the API routes.
func (s *Server) Register(router gin.IRouter) {
	api := router.Group("/api/v1")
	api.Use(s.authRequired())
	{
		api.GET("/bills", s.listBills)
		api.GET("/bills/export", s.exportBills)
		api.GET("/bills/:id/preview", s.previewReceipt)
		api.POST("/bills/receipt", s.uploadReceipt)
		api.POST("/bills", s.submitBill)
		api.POST("/navigation/back", s.navigateBack)
	}
}

// cookieKV adapts the request cookie jar to the identity key-value
// accessor shape.
type cookieKV struct {
	c *gin.Context
}

func (kv cookieKV) GetItem(key string) (string, bool) {
	value, err := kv.c.Cookie(key)
	if err != nil {
		return "", false
	}
	return value, true
}

// authRequired resolves the signed-in user from the "user" cookie and
// aborts unauthenticated requests.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := identity.NewKVProvider(cookieKV{c: c})
		user, err := provider.Current()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentification requise"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func currentUser(c *gin.Context) entity.User {
	user, _ := c.Get("user")
	return user.(entity.User)
}

// listBills returns the display rows, most recent first. A store
// failure keeps its message verbatim so the page layer can distinguish
// the known error classes.
func (s *Server) listBills(c *gin.Context) {
	rows, err := s.pipeline.Bills(c.Request.Context())
	if err != nil {
		c.JSON(listErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// listErrorStatus maps the store's message text onto an HTTP status,
// defaulting to 502 for unrecognized transport failures.
func listErrorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "404"):
		return http.StatusNotFound
	case strings.Contains(msg, "500"):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// uploadReceipt runs the file-selection path of the submission
// controller: validation, upload, session update. Validation and upload
// failures come back as the inline message the form shows.
func (s *Server) uploadReceipt(c *gin.Context) {
	user := currentUser(c)
	session := s.sessions.Get(user)

	header, err := c.FormFile("file")
	if err != nil {
		// no file selected is a no-op, not an error
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fichier illisible"})
		return
	}
	defer file.Close()

	session.controller.HandleFileSelected(c.Request.Context(), header.Filename, file)

	state := session.controller.Session()
	if state.ErrorText != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": state.ErrorText})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"fileUrl":  state.FileURL,
		"fileName": state.FileName,
		"key":      state.BillID,
	})
}

// submitBill runs the submit path and reports the navigation target.
// The submission session ends here: navigating away tears the
// controller down.
func (s *Server) submitBill(c *gin.Context) {
	user := currentUser(c)
	session := s.sessions.Get(user)

	input := submission.BillInput{
		Type:       c.PostForm("expense-type"),
		Name:       c.PostForm("expense-name"),
		Date:       c.PostForm("datepicker"),
		Amount:     c.PostForm("amount"),
		Vat:        c.PostForm("vat"),
		Pct:        c.PostForm("pct"),
		Commentary: c.PostForm("commentary"),
	}

	session.controller.HandleSubmit(c.Request.Context(), input)
	route := session.route()
	s.sessions.Close(user.Email)

	c.JSON(http.StatusOK, gin.H{"navigateTo": route})
}

// previewReceipt returns what the receipt modal consumes: the file URL
// when the bill has one, the fallback text otherwise.
func (s *Server) previewReceipt(c *gin.Context) {
	bills, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(listErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	for _, bill := range bills {
		if bill.ID == id {
			c.JSON(http.StatusOK, gin.H{
				"preview":    listing.ReceiptPreview(bill),
				"alt":        listing.PreviewAlt(bill),
				"hasReceipt": bill.HasReceipt(),
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "note de frais introuvable"})
}

// exportBills streams the bill collection as an xlsx workbook.
func (s *Server) exportBills(c *gin.Context) {
	rows, err := s.pipeline.Bills(c.Request.Context())
	if err != nil {
		c.JSON(listErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="notes-de-frais.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := s.exporter.Write(rows, c.Writer); err != nil {
		s.logger.Error("Failed to export bills", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

// navigateBack delivers the back signal to every live form session.
func (s *Server) navigateBack(c *gin.Context) {
	s.history.Back()
	c.Status(http.StatusNoContent)
}
