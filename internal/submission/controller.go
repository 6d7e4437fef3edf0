// Package submission owns the lifecycle of one in-progress bill
// submission: receipt validation, upload, form assembly, persistence and
// navigation.
package submission

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/format"
	"github.com/billed-fr/billed-server/internal/identity"
	"github.com/billed-fr/billed-server/internal/nav"
	"go.uber.org/zap"
)

// Inline messages shown on the file input.
const (
	MsgInvalidExtension = "Seuls les fichiers jpg, jpeg et png sont acceptés"
	MsgUploadFailed     = "Erreur lors du téléchargement du fichier"
)

// allowedExtensions is the receipt type allow-set, matched
// case-insensitively against the part after the last dot.
var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// FormPresenter is the inline surface of the submission form. The
// controller never touches the rendering layer directly; it only drives
// this interface.
type FormPresenter interface {
	// ShowFileError renders text next to the file input, reusing the
	// message node if one is already present.
	ShowFileError(text string)

	// ClearFileError removes any inline message.
	ClearFileError()

	// ResetFileInput empties the file input's value.
	ResetFileInput()
}

// BillInput carries the raw form field values of one submission. Amount
// and Pct arrive unparsed; the controller applies the coercion rules.
type BillInput struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	Vat        string
	Pct        string
	Commentary string
}

// Controller mediates between the submission form and the bill store.
// One controller serves one form session; Close tears it down.
type Controller struct {
	store     billstore.Store
	provider  identity.Provider
	presenter FormPresenter
	navigate  nav.Navigate
	logger    *zap.Logger

	mu      sync.Mutex
	session Session

	releaseBack func()
	closeOnce   sync.Once
}

// NewController creates a submission controller and registers its
// back-navigation listener: a back signal while the session is alive
// redirects to the bill list.
func NewController(
	store billstore.Store,
	provider identity.Provider,
	presenter FormPresenter,
	navigate nav.Navigate,
	history *nav.History,
	logger *zap.Logger,
) *Controller {
	c := &Controller{
		store:     store,
		provider:  provider,
		presenter: presenter,
		navigate:  navigate,
		logger:    logger,
	}
	if history != nil {
		c.releaseBack = history.OnBack(func() {
			c.navigate(nav.RouteBills)
		})
	}
	return c
}

// Session returns a snapshot of the current submission state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// HandleFileSelected runs the receipt validation and upload state
// machine for one file-selection event. Validation and upload failures
// are absorbed into the presenter and never returned; the controller is
// back in its idle state when this method exits.
func (c *Controller) HandleFileSelected(ctx context.Context, fileName string, content io.Reader) {
	if fileName == "" {
		return
	}

	c.mu.Lock()
	c.session.selection++
	selection := c.session.selection
	c.mu.Unlock()

	if !allowedExtensions[extensionOf(fileName)] {
		c.presenter.ResetFileInput()
		c.presenter.ShowFileError(MsgInvalidExtension)
		c.apply(selection, func(s Session) Session {
			return s.withError(MsgInvalidExtension, selection)
		})
		return
	}

	c.presenter.ClearFileError()
	c.apply(selection, func(s Session) Session {
		return s.withoutError(selection)
	})

	email := ""
	if user, err := c.provider.Current(); err == nil {
		email = user.Email
	} else {
		c.logger.Warn("No authenticated user for receipt upload", zap.Error(err))
	}

	asset, err := c.store.CreateReceipt(ctx, fileName, content, email)
	if err != nil {
		c.logger.Error("Receipt upload failed",
			zap.String("file_name", fileName),
			zap.Error(err))
		c.presenter.ShowFileError(MsgUploadFailed)
		c.presenter.ResetFileInput()
		c.apply(selection, func(s Session) Session {
			return s.withError(MsgUploadFailed, selection)
		})
		return
	}

	applied := c.apply(selection, func(s Session) Session {
		return s.withReceipt(asset.Key, asset.FileURL, fileName, selection)
	})
	if !applied {
		c.logger.Info("Discarding stale receipt upload",
			zap.String("file_name", fileName),
			zap.String("key", asset.Key))
	}
}

// HandleSubmit assembles the bill from the form input and the current
// session, hands it to the store and navigates to the bill list. The
// navigation fires exactly once whether or not the persist succeeds;
// persist failures are logged only.
func (c *Controller) HandleSubmit(ctx context.Context, input BillInput) {
	defer c.navigate(nav.RouteBills)

	email := ""
	if user, err := c.provider.Current(); err == nil {
		email = user.Email
	} else {
		c.logger.Warn("No authenticated user for bill submission", zap.Error(err))
	}

	session := c.Session()
	bill := entity.Bill{
		Email:      email,
		Type:       input.Type,
		Name:       input.Name,
		Amount:     format.Amount(input.Amount),
		Date:       input.Date,
		Vat:        input.Vat,
		Pct:        format.Pct(input.Pct),
		Commentary: input.Commentary,
		FileURL:    session.FileURL,
		FileName:   session.FileName,
		Status:     entity.StatusPending,
	}

	if _, err := c.store.Update(ctx, bill, session.BillID); err != nil {
		c.logger.Error("Failed to persist bill",
			zap.String("selector", session.BillID),
			zap.String("name", bill.Name),
			zap.Error(err))
	}
}

// Close releases the back-navigation registration. Safe to call more
// than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.releaseBack != nil {
			c.releaseBack()
		}
	})
}

// apply replaces the session through fn if selection is still current,
// reporting whether the transition landed.
func (c *Controller) apply(selection uint64, fn func(Session) Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.selection != selection {
		return false
	}
	c.session = fn(c.session)
	return true
}

// extensionOf returns the lower-cased part after the last dot, or the
// whole name when there is none (which never matches the allow-set).
func extensionOf(fileName string) string {
	parts := strings.Split(fileName, ".")
	return strings.ToLower(parts[len(parts)-1])
}
