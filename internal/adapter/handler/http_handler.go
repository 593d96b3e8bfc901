package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/service"
)

// HTTPHandler exposes the inventory operations over the store's JSON
// interface so the existing UI keeps working unchanged.
type HTTPHandler struct {
	ledger    *service.LedgerService
	shipments *service.ShipmentService
	search    *service.SearchService
	sites     *service.SiteService
	items     *service.ItemService
	users     *service.UserService
}

func NewHTTPHandler(ledger *service.LedgerService, shipments *service.ShipmentService, search *service.SearchService, sites *service.SiteService, items *service.ItemService, users *service.UserService) *HTTPHandler {
	return &HTTPHandler{
		ledger:    ledger,
		shipments: shipments,
		search:    search,
		sites:     sites,
		items:     items,
		users:     users,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sites", h.listSites)
	mux.HandleFunc("/sites/site", h.getSite)
	mux.HandleFunc("/sites/status", h.siteStatus)
	mux.HandleFunc("/sites/add", h.addSite)
	mux.HandleFunc("/sites/update", h.updateSite)
	mux.HandleFunc("/sites/delete", h.deleteSite)

	mux.HandleFunc("/items", h.listItems)
	mux.HandleFunc("/items/item", h.getItem)
	mux.HandleFunc("/items/add", h.addItem)
	mux.HandleFunc("/items/update", h.updateItem)
	mux.HandleFunc("/items/delete", h.deleteItem)

	mux.HandleFunc("/availabilities", h.listAvailabilities)
	mux.HandleFunc("/availabilities/site", h.availabilitiesBySite)
	mux.HandleFunc("/availabilities/item", h.sitesByItem)
	mux.HandleFunc("/availabilities/site/item", h.getAvailability)
	mux.HandleFunc("/availabilities/add", h.addAvailability)
	mux.HandleFunc("/availabilities/quantity", h.changeQuantity)
	mux.HandleFunc("/availabilities/searchByItems", h.searchByItems)

	mux.HandleFunc("/shipments", h.listShipments)
	mux.HandleFunc("/shipments/shipment", h.getShipment)
	mux.HandleFunc("/shipments/add", h.addShipment)
	mux.HandleFunc("/shipments/update", h.updateShipment)
	mux.HandleFunc("/shipments/delete", h.deleteShipment)

	mux.HandleFunc("/ships", h.listLines)
	mux.HandleFunc("/ships/add", h.addLine)

	mux.HandleFunc("/users/confirm", h.confirmUser)
	mux.HandleFunc("/users/user", h.getUser)
	mux.HandleFunc("/users/add", h.addUser)
	mux.HandleFunc("/users/update", h.updateUser)
	mux.HandleFunc("/users/delete", h.deleteUser)

	mux.HandleFunc("/health", h.HealthCheck)
}

// --- sites ---

func (h *HTTPHandler) listSites(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sites, err := h.sites.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(sites))
}

func (h *HTTPHandler) getSite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	siteID, _ := queryID(r, "siteId")
	site, err := h.sites.Get(r.Context(), siteID, r.URL.Query().Get("siteName"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (h *HTTPHandler) siteStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	siteID, err := queryID(r, "siteId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "siteId is required")
		return
	}
	site, err := h.sites.Get(r.Context(), siteID, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"siteStatus": string(site.Status)})
}

type siteAddRequest struct {
	SiteName     string `json:"siteName"`
	SiteLocation string `json:"siteLocation"`
	SiteStatus   string `json:"siteStatus"`
	CeaseDate    string `json:"ceaseDate"`
	InternalSite bool   `json:"internalSite"`
}

func (h *HTTPHandler) addSite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req siteAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	site := domain.Site{
		Name:     req.SiteName,
		Location: req.SiteLocation,
		Status:   domain.SiteStatus(req.SiteStatus),
		Internal: req.InternalSite,
	}
	if req.CeaseDate != "" {
		t, err := parseDate(req.CeaseDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date format is illegal")
			return
		}
		site.CeaseDate = &t
	}
	created, err := h.sites.Add(r.Context(), site)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type siteUpdateRequest struct {
	SiteID     int64   `json:"siteId"`
	SiteName   *string `json:"siteName"`
	SiteStatus *string `json:"siteStatus"`
	CeaseDate  *string `json:"ceaseDate"`
}

func (h *HTTPHandler) updateSite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req siteUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var cease *time.Time
	if req.CeaseDate != nil {
		t, err := parseDate(*req.CeaseDate)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date format is illegal")
			return
		}
		cease = &t
	}
	site, err := h.sites.Update(r.Context(), req.SiteID, req.SiteName, req.SiteStatus, cease)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (h *HTTPHandler) deleteSite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	siteID, err := queryID(r, "siteId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "siteId is required")
		return
	}
	var cease *time.Time
	if raw := r.URL.Query().Get("ceaseDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date format is illegal")
			return
		}
		cease = &t
	}
	if err := h.sites.Delete(r.Context(), siteID, cease); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "successfully deleted")
}

// --- items ---

func (h *HTTPHandler) listItems(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	items, err := h.items.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(items))
}

func (h *HTTPHandler) getItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	itemID, err := queryID(r, "itemId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "itemId is required")
		return
	}
	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) addItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var item domain.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.items.Add(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type itemUpdateRequest struct {
	ItemID    int64            `json:"itemId"`
	ItemName  *string          `json:"itemName"`
	ItemPrice *decimal.Decimal `json:"itemPrice"`
}

func (h *HTTPHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req itemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.items.Update(r.Context(), req.ItemID, req.ItemName, req.ItemPrice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	itemID, err := queryID(r, "itemId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "itemId is required")
		return
	}
	if err := h.items.Delete(r.Context(), itemID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "successfully deleted")
}

// --- availability ledger ---

func (h *HTTPHandler) listAvailabilities(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	entries, err := h.ledger.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(entries))
}

func (h *HTTPHandler) availabilitiesBySite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	siteID, err := queryID(r, "siteId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "please provide a valid siteId")
		return
	}
	entries, err := h.ledger.ListBySite(r.Context(), siteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(entries))
}

func (h *HTTPHandler) sitesByItem(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	itemID, err := queryID(r, "itemId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "itemId is required")
		return
	}
	sites, err := h.ledger.SitesByItem(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(sites))
}

func (h *HTTPHandler) getAvailability(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	siteID, err := queryID(r, "siteId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "siteId is required")
		return
	}
	itemID, err := queryID(r, "itemId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "itemId is required")
		return
	}
	av, err := h.ledger.Get(r.Context(), siteID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

func (h *HTTPHandler) addAvailability(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var av domain.Availability
	if err := json.NewDecoder(r.Body).Decode(&av); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.ledger.Create(r.Context(), av.SiteID, av.ItemID, av.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type quantityRequest struct {
	SiteID    int64  `json:"siteId"`
	ItemID    int64  `json:"itemId"`
	Operation string `json:"operation"`
	Quantity  int    `json:"quantity"`
}

func (h *HTTPHandler) changeQuantity(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	op, err := domain.ParseAdjustOp(req.Operation)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity, err := h.ledger.Adjust(r.Context(), req.SiteID, req.ItemID, op, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Availability{SiteID: req.SiteID, ItemID: req.ItemID, Quantity: quantity})
}

// itemParamPattern matches only the positional item0..itemN query keys;
// anything else named item-something (itemId, items) is not a selection.
var itemParamPattern = regexp.MustCompile(`^item[0-9]+$`)

// searchByItems reads the positional item0..itemN query params the UI
// sends and returns the sites stocking every one of them.
func (h *HTTPHandler) searchByItems(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var itemIDs []int64
	for key, values := range r.URL.Query() {
		if !itemParamPattern.MatchString(key) {
			continue
		}
		for _, value := range values {
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				writeMessage(w, http.StatusBadRequest, "item ids must be integers")
				return
			}
			itemIDs = append(itemIDs, id)
		}
	}
	sites, err := h.search.SitesByItems(r.Context(), itemIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(sites))
}

// --- shipments ---

func (h *HTTPHandler) listShipments(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	shipments, err := h.shipments.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(shipments))
}

func (h *HTTPHandler) getShipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	shipmentID, err := queryID(r, "shipmentId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "shipmentId is required")
		return
	}
	shipment, err := h.shipments.Get(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

type shipmentAddRequest struct {
	RequestID            string     `json:"requestId"`
	Source               int64      `json:"source"`
	Destination          int64      `json:"destination"`
	CurrentLocation      string     `json:"currentLocation"`
	DepartureTime        *time.Time `json:"departureTime"`
	EstimatedArrivalTime *time.Time `json:"estimatedArrivalTime"`
	ActualArrivalTime    *time.Time `json:"actualArrivalTime"`
	ShipmentStatus       string     `json:"shipmentStatus"`
	Lines                []struct {
		ItemID   int64 `json:"itemId"`
		Quantity int   `json:"quantity"`
	} `json:"lines"`
}

type shipmentAddResponse struct {
	Shipment *domain.Shipment      `json:"shipment"`
	Lines    []domain.ShipmentLine `json:"lines"`
}

func (h *HTTPHandler) addShipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req shipmentAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newShipment := service.NewShipment{
		RequestID:            req.RequestID,
		Source:               req.Source,
		Destination:          req.Destination,
		CurrentLocation:      req.CurrentLocation,
		DepartureTime:        req.DepartureTime,
		EstimatedArrivalTime: req.EstimatedArrivalTime,
		ActualArrivalTime:    req.ActualArrivalTime,
		Status:               domain.ShipmentStatus(req.ShipmentStatus),
	}
	for _, line := range req.Lines {
		newShipment.Lines = append(newShipment.Lines, service.NewLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	shipment, lines, err := h.shipments.Create(r.Context(), newShipment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipmentAddResponse{Shipment: shipment, Lines: lines})
}

type shipmentUpdateRequest struct {
	ShipmentID     int64      `json:"shipmentId"`
	ShipmentStatus string     `json:"shipmentStatus"`
	At             *time.Time `json:"at"`
}

func (h *HTTPHandler) updateShipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req shipmentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := domain.ParseShipmentStatus(req.ShipmentStatus)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	shipment, err := h.shipments.Advance(r.Context(), req.ShipmentID, status, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *HTTPHandler) deleteShipment(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	shipmentID, err := queryID(r, "shipmentId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "shipmentId is required")
		return
	}
	if err := h.shipments.Delete(r.Context(), shipmentID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "successfully deleted")
}

func (h *HTTPHandler) listLines(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	shipmentID, err := queryID(r, "shipmentId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "shipmentId is required")
		return
	}
	lines, err := h.shipments.Lines(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(lines))
}

func (h *HTTPHandler) addLine(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var line domain.ShipmentLine
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.shipments.RecordLine(r.Context(), line.ShipmentID, line.ItemID, line.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// --- users ---

func (h *HTTPHandler) confirmUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query()
	err := h.users.Confirm(r.Context(), query.Get("username"), query.Get("password"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "user exists and password matches")
}

func (h *HTTPHandler) getUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID, _ := queryID(r, "userId")
	user, err := h.users.Get(r.Context(), userID, r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) addUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.users.Add(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type userUpdateRequest struct {
	UserID   int64   `json:"userId"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Position *string `json:"position"`
}

func (h *HTTPHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.users.Update(r.Context(), req.UserID, req.Username, req.Password, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "userId is required")
		return
	}
	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "successfully deleted")
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func queryID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrBadCredentials):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateEntry),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrInsufficientQuantity),
		errors.Is(err, service.ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, service.ErrShipmentCreateFailed),
		errors.Is(err, service.ErrPartialShipment):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeMessage(w, statusFor(err), err.Error())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// emptyAsList keeps empty collections rendering as [] instead of null.
func emptyAsList[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
