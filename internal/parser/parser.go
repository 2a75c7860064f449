package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rigwild/raspberry-instock-check/internal/models"
	"github.com/shopspring/decimal"
)

// Supported upstream formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

const excerptLen = 200

var errNoListings = errors.New("no listing rows found")

// MalformedPayloadError is returned when the fetched body is not in the expected structured shape.
type MalformedPayloadError struct {
	Excerpt string
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func newMalformed(body []byte, err error) *MalformedPayloadError {
	excerpt := []rune(string(body))
	if len(excerpt) > excerptLen {
		excerpt = append(excerpt[:excerptLen], '…')
	}
	return &MalformedPayloadError{Excerpt: string(excerpt), Err: err}
}

type Parser struct {
	log     *slog.Logger
	client  *http.Client
	destURL string
	format  string
	now     func() time.Time
}

func NewParser(log *slog.Logger, destinationURL, format string, timeout time.Duration) *Parser {
	return &Parser{
		log:     log,
		destURL: destinationURL,
		format:  format,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Fetch retrieves the current listing table from upstream.
func (p *Parser) Fetch(ctx context.Context) (*models.Payload, error) {
	body, err := p.getResponseBody(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	var items []models.Item
	switch p.format {
	case FormatHTML:
		items, err = p.parseTableResponse(ctx, body)
	default:
		items, err = p.parseJSONResponse(ctx, body)
	}
	if err != nil {
		return nil, err
	}

	return &models.Payload{Raw: body, Items: items, FetchedAt: p.now()}, nil
}

func (p *Parser) getResponseBody(ctx context.Context) ([]byte, error) {
	reqURL, err := url.Parse(p.destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination URL %s: %w", p.destURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}

	req.Header.Add("User-Agent", "Mozilla/5.0 (compatible; GoHttpClient/1.0)")
	if p.format != FormatHTML {
		req.Header.Add("Accept", "application/json")
		req.Header.Add("X-Requested-With", "XMLHttpRequest")
	}

	p.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL, "header", req.Header)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", p.destURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	p.log.InfoContext(ctx, "Successfully received http response", "status code", res.StatusCode, "bytes", len(body))

	return body, nil
}

type rawStamp struct {
	Sort    json.RawMessage `json:"sort"`
	Display string          `json:"display"`
}

type rawListing struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Avail       string `json:"avail"`
	Link        string `json:"link"`
	Price       struct {
		Value    json.RawMessage `json:"value"`
		Display  string          `json:"display"`
		Currency string          `json:"currency"`
		Sort     json.RawMessage `json:"sort"`
	} `json:"price"`
	LastStock rawStamp `json:"last_stock"`
	Updated   rawStamp `json:"update_t"`
}

type rawTable struct {
	Data *[]rawListing `json:"data"`
}

func (p *Parser) parseJSONResponse(ctx context.Context, body []byte) ([]models.Item, error) {
	var table rawTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, newMalformed(body, fmt.Errorf("data cannot be parsed as JSON: %w", err))
	}
	if table.Data == nil {
		return nil, newMalformed(body, errors.New(`missing "data" field`))
	}

	items := make([]models.Item, 0, len(*table.Data))
	for _, raw := range *table.Data {
		if raw.SKU == "" || raw.Vendor == "" {
			p.log.WarnContext(ctx, "listing without sku or vendor", "sku", raw.SKU, "vendor", raw.Vendor)
			continue
		}
		items = append(items, models.Item{
			SKU:         strings.TrimSpace(raw.SKU),
			Description: strings.TrimSpace(raw.Description),
			Vendor:      strings.TrimSpace(raw.Vendor),
			Link:        strings.TrimSpace(raw.Link),
			Available:   isYes(raw.Avail),
			Price: models.Price{
				Value:    parseDecimal(rawString(raw.Price.Value)),
				Display:  strings.TrimSpace(raw.Price.Display),
				Currency: strings.TrimSpace(raw.Price.Currency),
				Sort:     rawString(raw.Price.Sort),
			},
			LastStock: models.Stamp{Sort: rawString(raw.LastStock.Sort), Display: raw.LastStock.Display},
			Updated:   models.Stamp{Sort: rawString(raw.Updated.Sort), Display: raw.Updated.Display},
		})
	}
	p.log.DebugContext(ctx, "Parsed listings", "count", len(items))

	return items, nil
}

func (p *Parser) parseTableResponse(ctx context.Context, body []byte) ([]models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, newMalformed(body, fmt.Errorf("data cannot be parsed as HTML: %w", err))
	}

	var items []models.Item
	numberOfCells := 7
	descriptionIdx := 0
	linkIdx := 1
	vendorIdx := 3
	availIdx := 4
	lastStockIdx := 5
	priceIdx := 6

	doc.Find("table tbody tr").Each(func(idx int, s *goquery.Selection) {
		sku := strings.TrimSpace(s.Find("th").First().Text())
		cells := s.Find("td")

		if sku == "" || cells.Length() < numberOfCells {
			p.log.WarnContext(ctx, "table row has insufficient cells", "index", idx, "length", cells.Length())
			return
		}

		link, _ := cells.Eq(linkIdx).Find("a").Attr("href")
		display := strings.TrimSpace(cells.Eq(priceIdx).Text())
		item := models.Item{
			SKU:         sku,
			Description: strings.TrimSpace(cells.Eq(descriptionIdx).Text()),
			Link:        strings.TrimSpace(link),
			Vendor:      strings.TrimSpace(cells.Eq(vendorIdx).Text()),
			Available:   isYes(cells.Eq(availIdx).Text()),
			LastStock:   models.Stamp{Display: strings.TrimSpace(cells.Eq(lastStockIdx).Text())},
			Price:       models.Price{Display: display, Value: parseDecimal(display)},
		}
		p.log.DebugContext(ctx, "Parsed listing", "sku", item.SKU, "vendor", item.Vendor, "price", item.Price.Display)
		items = append(items, item)
	})

	if len(items) == 0 {
		return nil, newMalformed(body, errNoListings)
	}

	return items, nil
}

func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// rawString returns a JSON scalar as plain text: strings are unquoted, numbers kept as written.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// parseDecimal extracts a number from values such as "35", "$35.00", "1,299.90 €" or "1.299,90 €".
// A comma followed by one or two trailing digits is the decimal separator; any other comma
// groups thousands.
func parseDecimal(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	num := b.String()

	if i := strings.LastIndexByte(num, ','); i >= 0 && i > strings.LastIndexByte(num, '.') {
		if frac := len(num) - i - 1; frac == 1 || frac == 2 {
			num = strings.ReplaceAll(num[:i], ".", "") + "." + num[i+1:]
		}
	}
	num = strings.ReplaceAll(num, ",", "")

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}
