package httpserver

import (
	"net/http"
	"time"

	"punchout-catalog/internal/domain"
	cartsvc "punchout-catalog/internal/service/cart"
	"punchout-catalog/internal/service/punchout"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type handlers struct {
	ctrl   *punchout.Controller
	logger *zap.Logger
}

// Wire DTOs. The public API speaks snake_case regardless of how records are
// stored.
type cartLineRequest struct {
	ProductID      string          `json:"product_id" binding:"required"`
	SupplierPartID string          `json:"supplier_part_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Brand          string          `json:"brand"`
	PartNumber     string          `json:"part_number"`
	UnspscCode     string          `json:"unspsc_code"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
}

type cartLineResponse struct {
	ProductID      string          `json:"product_id"`
	SupplierPartID string          `json:"supplier_part_id,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Brand          string          `json:"brand,omitempty"`
	PartNumber     string          `json:"part_number,omitempty"`
	UnspscCode     string          `json:"unspsc_code,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
	ExtendedPrice  decimal.Decimal `json:"extended_price"`
}

type snapshotResponse struct {
	Items   []cartLineResponse `json:"items"`
	Version int64              `json:"version"`
	Total   decimal.Decimal    `json:"total"`
}

type sessionResponse struct {
	Valid         bool      `json:"valid"`
	BuyerIdentity string    `json:"buyer_identity"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	Version       int64     `json:"version"`
}

func (h *handlers) getSession(c *gin.Context) {
	sess, err := h.ctrl.VerifySession(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Valid:         sess.Status == domain.StatusActive,
		BuyerIdentity: sess.BuyerIdentity,
		Status:        string(sess.Status),
		ExpiresAt:     sess.ExpiresAt,
		Version:       sess.Version,
	})
}

type cartUpdateRequest struct {
	SessionToken string            `json:"session_token" binding:"required"`
	Items        []cartLineRequest `json:"items"`
}

func (h *handlers) updateCart(c *gin.Context) {
	var req cartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apiError{Code: "BAD_REQUEST", Message: err.Error()}})
		return
	}
	items := make([]domain.CartLine, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, toDomainLine(it))
	}
	snap, err := h.ctrl.UpdateCart(c.Request.Context(), req.SessionToken, items)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

type cartRemoveRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	ProductID    string `json:"product_id" binding:"required"`
}

func (h *handlers) removeLine(c *gin.Context) {
	var req cartRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apiError{Code: "BAD_REQUEST", Message: err.Error()}})
		return
	}
	snap, err := h.ctrl.RemoveLine(c.Request.Context(), req.SessionToken, req.ProductID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

func (h *handlers) getCart(c *gin.Context) {
	token := c.Query("session_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": apiError{Code: "BAD_REQUEST", Message: "session_token required"}})
		return
	}
	snap, err := h.ctrl.GetCart(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

type orderLineResponse struct {
	ProductID      string          `json:"product_id"`
	SupplierPartID string          `json:"supplier_part_id,omitempty"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ExtendedPrice  decimal.Decimal `json:"extended_price"`
}

type transferResponse struct {
	Message struct {
		DocumentID    string              `json:"document_id"`
		BuyerIdentity string              `json:"buyer_identity"`
		Lines         []orderLineResponse `json:"lines"`
		Total         decimal.Decimal     `json:"total"`
	} `json:"message"`
	Document           string             `json:"cxml_or_equivalent"`
	BrowserFormPostURL string             `json:"browser_form_post_url"`
	Method             string             `json:"method"`
	Fields             []domain.FormField `json:"fields"`
}

// transferOrder answers with everything the client needs to build the
// same-tab HTML form POST back to the buyer system.
func (h *handlers) transferOrder(c *gin.Context) {
	token := c.Query("session_token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": apiError{Code: "BAD_REQUEST", Message: "session_token required"}})
		return
	}
	res, err := h.ctrl.Transfer(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var resp transferResponse
	resp.Message.DocumentID = res.Message.DocumentID
	resp.Message.BuyerIdentity = res.Message.BuyerIdentity
	resp.Message.Total = res.Message.Total
	for _, l := range res.Message.Lines {
		resp.Message.Lines = append(resp.Message.Lines, orderLineResponse{
			ProductID:      l.ProductID,
			SupplierPartID: l.SupplierPartID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitOfMeasure:  l.UnitOfMeasure,
			UnitPrice:      l.UnitPrice,
			ExtendedPrice:  l.ExtendedPrice,
		})
	}
	resp.Document = res.Document
	resp.BrowserFormPostURL = res.Redirect.URL
	resp.Method = res.Redirect.Method
	resp.Fields = res.Redirect.Fields
	c.JSON(http.StatusOK, resp)
}

func toDomainLine(in cartLineRequest) domain.CartLine {
	return domain.CartLine{
		ProductID:      in.ProductID,
		SupplierPartID: in.SupplierPartID,
		Name:           in.Name,
		Description:    in.Description,
		Brand:          in.Brand,
		PartNumber:     in.PartNumber,
		UnspscCode:     in.UnspscCode,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		UnitOfMeasure:  in.UnitOfMeasure,
	}
}

func toSnapshotResponse(snap *cartsvc.Snapshot) snapshotResponse {
	items := make([]cartLineResponse, 0, len(snap.Items))
	for _, l := range snap.Items {
		items = append(items, cartLineResponse{
			ProductID:      l.ProductID,
			SupplierPartID: l.SupplierPartID,
			Name:           l.Name,
			Description:    l.Description,
			Brand:          l.Brand,
			PartNumber:     l.PartNumber,
			UnspscCode:     l.UnspscCode,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			UnitOfMeasure:  l.UnitOfMeasure,
			ExtendedPrice:  l.ExtendedPrice(),
		})
	}
	return snapshotResponse{Items: items, Version: snap.Version, Total: snap.Total}
}
