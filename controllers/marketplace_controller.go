package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"ecoxchange/internal/marketplace"
	"ecoxchange/internal/session"
	"ecoxchange/middlewares"
	"ecoxchange/models"
	"ecoxchange/services"
	"ecoxchange/structs"
	"ecoxchange/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultTransactionLimit = 20
	maxTransactionLimit     = 100
)

// MarketplaceController serves the marketplace endpoints of one Marketplace.
type MarketplaceController struct {
	market    *services.Marketplace
	tokens    *utils.TokenManager
	gaugeFull models.Money
	logger    *zap.Logger
}

func NewMarketplaceController(market *services.Marketplace, tokens *utils.TokenManager, gaugeFull models.Money, logger *zap.Logger) *MarketplaceController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketplaceController{market: market, tokens: tokens, gaugeFull: gaugeFull, logger: logger}
}

// Render shapes a state for responses and websocket pushes.
func (mc *MarketplaceController) Render(s marketplace.State) structs.StateResponse {
	return structs.NewStateResponse(s, mc.market.Listings(), mc.gaugeFull)
}

// SignIn opens a new signed-in session and returns its token.
func (mc *MarketplaceController) SignIn(c *gin.Context) {
	id, state, err := mc.market.SignIn(c.Request.Context())
	if err != nil {
		mc.logger.Error("sign in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in", "message": err.Error()})
		return
	}
	token, expiresAt, err := mc.tokens.Issue(id)
	if err != nil {
		mc.logger.Error("token issue failed", zap.String("session", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, structs.SignInResponse{
		Token:     token,
		SessionID: id,
		ExpiresAt: expiresAt,
		State:     mc.Render(state),
	})
}

func (mc *MarketplaceController) GetState(c *gin.Context) {
	state, err := mc.market.State(c.Request.Context(), middlewares.SessionID(c))
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc.Render(state))
}

func (mc *MarketplaceController) GetListings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"listings": mc.market.Listings()})
}

// SelectFile stores the multipart "document" part as the pending upload.
func (mc *MarketplaceController) SelectFile(c *gin.Context) {
	header, err := c.FormFile(services.DocumentField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": "multipart field \"document\" is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return
	}

	state, err := mc.market.SelectFile(c.Request.Context(), middlewares.SessionID(c), models.PendingFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	})
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc.Render(state))
}

func (mc *MarketplaceController) Submit(c *gin.Context) {
	state, err := mc.market.Submit(c.Request.Context(), middlewares.SessionID(c))
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc.Render(state))
}

func (mc *MarketplaceController) Search(c *gin.Context) {
	var req structs.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return
	}
	results, state, err := mc.market.Search(c.Request.Context(), middlewares.SessionID(c), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, marketplace.ErrNotSignedIn):
			mc.respondError(c, err)
		case errors.Is(err, services.ErrCatalogTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Search timed out", "message": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Search failed", "message": err.Error()})
		}
		return
	}
	if results == nil {
		results = []models.Listing{}
	}
	c.JSON(http.StatusOK, structs.SearchResponse{Query: req.Query, Results: results, State: mc.Render(state)})
}

func (mc *MarketplaceController) Purchase(c *gin.Context) {
	var req structs.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return
	}
	listing, state, err := mc.market.Purchase(c.Request.Context(), middlewares.SessionID(c), req.ListingID)
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, structs.PurchaseResponse{Listing: listing, State: mc.Render(state)})
}

func (mc *MarketplaceController) SetView(c *gin.Context) {
	var req structs.SetViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": err.Error()})
		return
	}
	mode, err := marketplace.ParseViewMode(req.Mode)
	if err != nil {
		mc.respondError(c, err)
		return
	}
	state, err := mc.market.SetView(c.Request.Context(), middlewares.SessionID(c), mode)
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc.Render(state))
}

func (mc *MarketplaceController) ToggleView(c *gin.Context) {
	state, err := mc.market.ToggleView(c.Request.Context(), middlewares.SessionID(c))
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc.Render(state))
}

// GetTransactions lists the session's newest balance changes.
func (mc *MarketplaceController) GetTransactions(c *gin.Context) {
	limit := defaultTransactionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTransactionLimit)
	}
	txs, err := mc.market.Transactions(c.Request.Context(), middlewares.SessionID(c), limit)
	if err != nil {
		mc.respondError(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, structs.TransactionsResponse{Transactions: txs})
}

func (mc *MarketplaceController) respondError(c *gin.Context, err error) {
	var uploadErr *services.UploadError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, marketplace.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found or expired"})
	case errors.Is(err, marketplace.ErrNoFileSelected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": marketplace.MsgNoFileSelected})
	case errors.Is(err, marketplace.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "A submission is already in progress"})
	case errors.As(err, &uploadErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": marketplace.MsgUploadFailed, "message": err.Error()})
	case errors.Is(err, services.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, marketplace.ErrUnknownView):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "message": "mode must be \"buyer\" or \"seller\""})
	default:
		mc.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "message": err.Error()})
	}
}
