// Package remote implements the store ports against a remote inventory
// store speaking JSON over HTTP. One canonical schema per entity is used on
// the wire; request and response field names match the store's.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
)

var errNotFound = errors.New("remote: not found")

// Client talks to the remote store. All operations are single round trips;
// no retries are attempted here, transport failures surface to the caller.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode >= 300:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, text)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func idQuery(key string, id int64) url.Values {
	return url.Values{key: []string{strconv.FormatInt(id, 10)}}
}

// --- sites ---

func (c *Client) ListSites(ctx context.Context) ([]domain.Site, error) {
	var sites []domain.Site
	if err := c.do(ctx, http.MethodGet, "/sites", nil, nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (c *Client) GetSite(ctx context.Context, siteID int64) (*domain.Site, error) {
	var site domain.Site
	err := c.do(ctx, http.MethodGet, "/sites/site", idQuery("siteId", siteID), nil, &site)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *Client) GetSiteByName(ctx context.Context, name string) (*domain.Site, error) {
	var site domain.Site
	err := c.do(ctx, http.MethodGet, "/sites/site", url.Values{"siteName": []string{name}}, nil, &site)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *Client) CreateSite(ctx context.Context, site domain.Site) (*domain.Site, error) {
	var created domain.Site
	if err := c.do(ctx, http.MethodPost, "/sites/add", nil, site, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateSite(ctx context.Context, site domain.Site) error {
	return c.do(ctx, http.MethodPost, "/sites/update", nil, site, nil)
}

func (c *Client) DeleteSite(ctx context.Context, siteID int64) error {
	return c.do(ctx, http.MethodDelete, "/sites/delete", idQuery("siteId", siteID), nil, nil)
}

// --- items ---

func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, itemID int64) (*domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodGet, "/items/item", idQuery("itemId", itemID), nil, &item)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	var created domain.Item
	if err := c.do(ctx, http.MethodPost, "/items/add", nil, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateItem(ctx context.Context, item domain.Item) error {
	return c.do(ctx, http.MethodPost, "/items/update", nil, item, nil)
}

func (c *Client) DeleteItem(ctx context.Context, itemID int64) error {
	return c.do(ctx, http.MethodDelete, "/items/delete", idQuery("itemId", itemID), nil, nil)
}

// --- availability ledger ---

func (c *Client) ListBySite(ctx context.Context, siteID int64) ([]domain.AvailabilityEntry, error) {
	var entries []domain.AvailabilityEntry
	if err := c.do(ctx, http.MethodGet, "/availabilities/site", idQuery("siteId", siteID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ListAll(ctx context.Context) ([]domain.AvailabilityEntry, error) {
	var entries []domain.AvailabilityEntry
	if err := c.do(ctx, http.MethodGet, "/availabilities", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) GetAvailability(ctx context.Context, siteID, itemID int64) (*domain.Availability, error) {
	query := idQuery("siteId", siteID)
	query.Set("itemId", strconv.FormatInt(itemID, 10))
	var av domain.Availability
	err := c.do(ctx, http.MethodGet, "/availabilities/site/item", query, nil, &av)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &av, nil
}

func (c *Client) CreateAvailability(ctx context.Context, av domain.Availability) error {
	return c.do(ctx, http.MethodPost, "/availabilities/add", nil, av, nil)
}

type quantityRequest struct {
	SiteID    int64  `json:"siteId"`
	ItemID    int64  `json:"itemId"`
	Operation string `json:"operation"`
	Quantity  int    `json:"quantity"`
}

func (c *Client) adjust(ctx context.Context, siteID, itemID int64, op domain.AdjustOp, quantity int) error {
	req := quantityRequest{SiteID: siteID, ItemID: itemID, Operation: string(op), Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/availabilities/quantity", nil, req, nil)
}

func (c *Client) SetQuantity(ctx context.Context, siteID, itemID int64, quantity int) error {
	return c.adjust(ctx, siteID, itemID, domain.OpSet, quantity)
}

func (c *Client) IncrementQuantity(ctx context.Context, siteID, itemID int64, amount int) error {
	return c.adjust(ctx, siteID, itemID, domain.OpIncrement, amount)
}

// DecrementQuantity maps the store's conflict status onto the conditional
// contract: a 409 means the quantity could not cover the decrement.
func (c *Client) DecrementQuantity(ctx context.Context, siteID, itemID int64, amount int) (bool, error) {
	req := quantityRequest{SiteID: siteID, ItemID: itemID, Operation: string(domain.OpDecrement), Quantity: amount}

	u := c.baseURL + "/availabilities/quantity"
	buf, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("POST /availabilities/quantity: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusConflict:
		return false, nil
	default:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("POST /availabilities/quantity: status %d: %s", resp.StatusCode, text)
	}
}

func (c *Client) SitesByItem(ctx context.Context, itemID int64) ([]domain.Site, error) {
	var sites []domain.Site
	if err := c.do(ctx, http.MethodGet, "/availabilities/item", idQuery("itemId", itemID), nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// SitesByItems delegates the intersection to the store's search endpoint,
// which takes positional query params, one per item id.
func (c *Client) SitesByItems(ctx context.Context, itemIDs []int64) ([]domain.Site, error) {
	query := url.Values{}
	for i, id := range itemIDs {
		query.Set("item"+strconv.Itoa(i), strconv.FormatInt(id, 10))
	}
	var sites []domain.Site
	if err := c.do(ctx, http.MethodGet, "/availabilities/searchByItems", query, nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// --- shipments ---

func (c *Client) ListShipments(ctx context.Context) ([]domain.Shipment, error) {
	var shipments []domain.Shipment
	if err := c.do(ctx, http.MethodGet, "/shipments", nil, nil, &shipments); err != nil {
		return nil, err
	}
	return shipments, nil
}

func (c *Client) GetShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	var sh domain.Shipment
	err := c.do(ctx, http.MethodGet, "/shipments/shipment", idQuery("shipmentId", shipmentID), nil, &sh)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (c *Client) CreateShipment(ctx context.Context, sh domain.Shipment) (*domain.Shipment, error) {
	var created domain.Shipment
	if err := c.do(ctx, http.MethodPost, "/shipments/add", nil, sh, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateShipment(ctx context.Context, sh domain.Shipment) error {
	return c.do(ctx, http.MethodPost, "/shipments/update", nil, sh, nil)
}

func (c *Client) DeleteShipment(ctx context.Context, shipmentID int64) error {
	return c.do(ctx, http.MethodDelete, "/shipments/delete", idQuery("shipmentId", shipmentID), nil, nil)
}

func (c *Client) CreateLine(ctx context.Context, line domain.ShipmentLine) error {
	return c.do(ctx, http.MethodPost, "/ships/add", nil, line, nil)
}

func (c *Client) LinesByShipment(ctx context.Context, shipmentID int64) ([]domain.ShipmentLine, error) {
	var lines []domain.ShipmentLine
	if err := c.do(ctx, http.MethodGet, "/ships", idQuery("shipmentId", shipmentID), nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// --- users ---

func (c *Client) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	var u domain.User
	err := c.do(ctx, http.MethodGet, "/users/user", idQuery("userId", userID), nil, &u)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUserByName(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := c.do(ctx, http.MethodGet, "/users/user", url.Values{"username": []string{username}}, nil, &u)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	var created domain.User
	if err := c.do(ctx, http.MethodPost, "/users/add", nil, u, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateUser(ctx context.Context, u domain.User) error {
	return c.do(ctx, http.MethodPost, "/users/update", nil, u, nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodDelete, "/users/delete", idQuery("userId", userID), nil, nil)
}
