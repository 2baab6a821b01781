package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	appcart "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/cart"
	appinventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/inventory"
	apporder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/order"
	appwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/wallet"
	domcart "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
	dominventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/inventory"
	dommenu "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/menu"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

type Handler struct {
	carts     *appcart.Service
	orders    *apporder.Service
	wallets   *appwallet.Service
	inventory *appinventory.Service
	menu      dommenu.Repository
	log       observability.Logger
	tel       observability.Telemetry
}

const componentHTTPHandler = "http_server"

func NewHandler(
	carts *appcart.Service,
	orders *apporder.Service,
	wallets *appwallet.Service,
	inventory *appinventory.Service,
	menu dommenu.Repository,
	tel observability.Telemetry,
) *Handler {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		carts:     carts,
		orders:    orders,
		wallets:   wallets,
		inventory: inventory,
		menu:      menu,
		log:       tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:       tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /menu", h.handleListMenu)
	h.handle(mux, "PUT /menu/{id}", h.handleUpdateMenu)

	h.handle(mux, "POST /cart/{customerID}/items", h.handleAddCartItem)
	h.handle(mux, "DELETE /cart/{customerID}/items/{index}", h.handleRemoveCartLine)
	h.handle(mux, "GET /cart/{customerID}", h.handleGetCart)

	h.handle(mux, "POST /checkout", h.handleCheckout)
	h.handle(mux, "GET /orders", h.handleListOrders)
	h.handle(mux, "GET /orders/{id}", h.handleGetOrder)
	h.handle(mux, "POST /orders/{id}/transition", h.handleTransition)

	h.handle(mux, "POST /payments/callback", h.handlePaymentCallback)

	h.handle(mux, "POST /inventory/restock", h.handleRestock)

	h.handle(mux, "GET /wallets/{ownerID}", h.handleWalletStatement)
	h.handle(mux, "POST /wallets/{ownerID}/topup", h.handleWalletTopUp)

	h.handle(mux, "GET /health", h.handleHealth)

	return mux
}

type addCartItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type cartResponse struct {
	CustomerID string         `json:"customer_id"`
	Lines      []domcart.Line `json:"lines"`
	Total      int64          `json:"total"`
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.carts.AddItem(r.Context(), r.PathValue("customerID"), req.ItemID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) handleRemoveCartLine(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := h.carts.RemoveLine(r.Context(), r.PathValue("customerID"), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), r.PathValue("customerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

type checkoutRequest struct {
	CustomerID    string `json:"customer_id"`
	PaymentMethod string `json:"payment_method"`
}

type checkoutResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snapshot, err := h.carts.Freeze(r.Context(), req.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.orders.Checkout(r.Context(), apporder.CheckoutInput{
		Checkout: snapshot,
		Method:   dompayment.Method(req.PaymentMethod),
	})
	if err != nil && result == nil {
		writeDomainError(w, err)
		return
	}

	// The cart survives failed payments so the customer can retry.
	if result.Status == domorder.StatusConfirmed {
		h.carts.Clear(r.Context(), req.CustomerID)
	}

	resp := checkoutResponse{OrderID: result.OrderID, Status: string(result.Status)}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type orderResponse struct {
	OrderID          string         `json:"order_id"`
	CustomerID       string         `json:"customer_id"`
	Lines            []domcart.Line `json:"lines"`
	Subtotal         int64          `json:"subtotal"`
	Status           string         `json:"status"`
	PaymentMethod    string         `json:"payment_method"`
	TransactionRef   string         `json:"transaction_ref,omitempty"`
	InventoryApplied bool           `json:"inventory_applied"`
	Version          uint64         `json:"version"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		OrderID:          o.ID,
		CustomerID:       o.CustomerID,
		Lines:            o.Lines,
		Subtotal:         o.Subtotal,
		Status:           string(o.Status),
		PaymentMethod:    string(o.PaymentMethod),
		TransactionRef:   o.TransactionRef,
		InventoryApplied: o.InventoryApplied,
		Version:          o.Version,
	}
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	status := domorder.Status(r.URL.Query().Get("status"))
	orders, err := h.orders.ListByStatus(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type transitionRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor"`
}

type transitionResponse struct {
	Status  string `json:"status"`
	Version uint64 `json:"version"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.orders.Transition(r.Context(), apporder.TransitionInput{
		OrderID: r.PathValue("id"),
		From:    domorder.Status(req.From),
		To:      domorder.Status(req.To),
		Actor:   req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Status: string(result.Status), Version: result.Version})
}

type paymentCallbackRequest struct {
	OrderID        string `json:"order_id"`
	TransactionRef string `json:"transaction_ref"`
	Outcome        string `json:"outcome"`
}

func (h *Handler) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.orders.HandleConfirmation(r.Context(), dompayment.Confirmation{
		OrderID:        req.OrderID,
		TransactionRef: req.TransactionRef,
		Outcome:        dompayment.Outcome(req.Outcome),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type restockRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type restockResponse struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quantity, err := h.inventory.Restock(r.Context(), req.SKU, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restockResponse{SKU: req.SKU, Quantity: quantity})
}

type walletStatementResponse struct {
	OwnerID string           `json:"owner_id"`
	Balance int64            `json:"balance"`
	Version uint64           `json:"version"`
	Entries []domwallet.Entry `json:"entries"`
}

func (h *Handler) handleWalletStatement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.wallets.Statement(r.Context(), r.PathValue("ownerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletStatementResponse{
		OwnerID: statement.Account.OwnerID,
		Balance: statement.Account.Balance,
		Version: statement.Account.Version,
		Entries: statement.Entries,
	})
}

type topUpRequest struct {
	Amount int64 `json:"amount"`
}

type topUpResponse struct {
	OwnerID string `json:"owner_id"`
	Balance int64  `json:"balance"`
}

func (h *Handler) handleWalletTopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ownerID := r.PathValue("ownerID")
	balance, err := h.wallets.TopUp(r.Context(), ownerID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topUpResponse{OwnerID: ownerID, Balance: balance})
}

type menuItemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

func (h *Handler) handleListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, menuItemResponse{
			ID: item.ID, Name: item.Name, Price: item.Price,
			Category: item.Category, Available: item.Available,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type updateMenuRequest struct {
	Price     *int64 `json:"price"`
	Available *bool  `json:"available"`
}

func (h *Handler) handleUpdateMenu(w http.ResponseWriter, r *http.Request) {
	var req updateMenuRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := h.menu.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Price != nil {
		if err := item.SetPrice(*req.Price); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Available != nil {
		item.SetAvailable(*req.Available)
	}
	if err := h.menu.Save(r.Context(), item); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, menuItemResponse{
		ID: item.ID, Name: item.Name, Price: item.Price,
		Category: item.Category, Available: item.Available,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func toCartResponse(v appcart.View) cartResponse {
	return cartResponse{CustomerID: v.CustomerID, Lines: v.Lines, Total: v.Total}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// statusFor maps the error taxonomy onto HTTP statuses. Conflict always means
// "refetch and retry the intended transition".
func statusFor(err error) int {
	switch {
	case errors.Is(err, domorder.ErrConflict),
		errors.Is(err, domwallet.ErrConflict),
		errors.Is(err, dompayment.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, domwallet.ErrNotFound),
		errors.Is(err, dommenu.ErrNotFound),
		errors.Is(err, dominventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dompayment.ErrInsufficientFunds),
		errors.Is(err, dompayment.ErrDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, dompayment.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, dompayment.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apporder.ErrValidation),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domcart.ErrEmptyCart),
		errors.Is(err, domcart.ErrLineNotFound),
		errors.Is(err, dommenu.ErrUnavailable),
		errors.Is(err, dommenu.ErrInvalidItem),
		errors.Is(err, dominventory.ErrInvalidQuantity),
		errors.Is(err, domwallet.ErrInvalidAmount),
		errors.Is(err, dompayment.ErrUnknownMethod):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
