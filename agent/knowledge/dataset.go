package knowledge

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

type Product struct {
	Name               string            `json:"name"`
	CompatibilityNotes string            `json:"compatibility_notes"`
	URL                string            `json:"url"`
	Fields             map[string]string `json:"-"`
	// Text is every column joined with " | ", used for indexing.
	Text string `json:"-"`
}

type Document struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Source  string   `json:"source"`
	Images  []string `json:"images,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Text    string   `json:"-"`
}

type Order struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	ETA            string `json:"eta"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Items          []any  `json:"items"`
}

// OrderBook maps user_id to that user's orders. A present key with an
// empty slice is a known user without orders.
type OrderBook map[string][]Order

// OrderRecord is one indexed order with its owner.
type OrderRecord struct {
	UserID string
	Order  Order
	Text   string
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("csv has no header")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return header, rows[1:], nil
}

func rowFields(header, row []string) map[string]string {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			fields[h] = strings.TrimSpace(row[i])
		} else {
			fields[h] = ""
		}
	}
	return fields
}

func joinRow(header []string, fields map[string]string) string {
	parts := make([]string, 0, len(header))
	for _, h := range header {
		parts = append(parts, fields[h])
	}
	return strings.Join(parts, " | ")
}

func LoadProducts(r io.Reader) ([]Product, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%w: products: %v", contractx.ErrDatasetLoad, err)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		fields := rowFields(header, row)
		products = append(products, Product{
			Name:               fields["name"],
			CompatibilityNotes: fields["compatibility_notes"],
			URL:                fields["url"],
			Fields:             fields,
			Text:               joinRow(header, fields),
		})
	}
	return products, nil
}

func LoadKnowledge(r io.Reader) ([]Document, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%w: knowledge: %v", contractx.ErrDatasetLoad, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		fields := rowFields(header, row)
		doc := Document{
			ID:      fields["id"],
			Title:   fields["title"],
			Content: fields["content"],
			Text:    joinRow(header, fields),
		}
		for _, h := range header {
			v := fields[h]
			if v == "" {
				continue
			}
			switch {
			case strings.HasPrefix(h, "urls/") && strings.HasSuffix(h, "/href"):
				if doc.Source == "" {
					doc.Source = v
				}
			case strings.HasPrefix(h, "images/"):
				doc.Images = append(doc.Images, v)
			case strings.HasPrefix(h, "tags/"):
				doc.Tags = append(doc.Tags, v)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type ordersFile struct {
	OrdersDB map[string]struct {
		Orders []Order `json:"orders"`
	} `json:"orders_db"`
}

func LoadOrders(r io.Reader) (OrderBook, error) {
	var raw ordersFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: orders: %v", contractx.ErrDatasetLoad, err)
	}
	if raw.OrdersDB == nil {
		return nil, fmt.Errorf("%w: orders: missing orders_db", contractx.ErrDatasetLoad)
	}

	book := make(OrderBook, len(raw.OrdersDB))
	for userID, entry := range raw.OrdersDB {
		orders := entry.Orders
		if orders == nil {
			orders = []Order{}
		}
		book[strings.TrimSpace(userID)] = orders
	}
	return book, nil
}

// Records flattens the book in stable user order for indexing.
func (b OrderBook) Records() []OrderRecord {
	users := make([]string, 0, len(b))
	for u := range b {
		users = append(users, u)
	}
	sort.Strings(users)

	var out []OrderRecord
	for _, u := range users {
		for _, o := range b[u] {
			items, _ := json.Marshal(o.Items)
			text := strings.Join([]string{
				"user_id: " + u,
				"order_id: " + o.OrderID,
				"status: " + o.Status,
				"eta: " + o.ETA,
				"tracking_number: " + o.TrackingNumber,
				"items: " + string(items),
			}, " | ")
			out = append(out, OrderRecord{UserID: u, Order: o, Text: text})
		}
	}
	return out
}

// Lookup finds a user case-insensitively.
func (b OrderBook) Lookup(userID string) (string, []Order, bool) {
	userID = strings.TrimSpace(userID)
	if orders, ok := b[userID]; ok {
		return userID, orders, true
	}
	for k, orders := range b {
		if strings.EqualFold(k, userID) {
			return k, orders, true
		}
	}
	return "", nil, false
}

func openAndLoad[T any](path string, load func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("%w: open %s: %v", contractx.ErrDatasetLoad, path, err)
	}
	defer f.Close()
	return load(f)
}

func LoadProductsFile(path string) ([]Product, error) {
	return openAndLoad(path, LoadProducts)
}

func LoadKnowledgeFile(path string) ([]Document, error) {
	return openAndLoad(path, LoadKnowledge)
}

func LoadOrdersFile(path string) (OrderBook, error) {
	return openAndLoad(path, LoadOrders)
}
