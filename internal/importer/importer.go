package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CatalogWriter persists products and their SKUs.
type CatalogWriter interface {
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertItem(ctx context.Context, it domain.Item) (*domain.Item, error)
}

// CSVImporter reads catalog CSV files and upserts products with their SKUs.
//
// Expected header: product_key,product_name,sku_key,sku_name,price,stock,image.
// A row with an empty product_key is another SKU of the product above it.
type CSVImporter struct {
	reader *csv.Reader
	repo   CatalogWriter
	logger zerolog.Logger
}

// Result counts what a run wrote.
type Result struct {
	Products int
	Items    int
}

func NewCSVImporter(r io.Reader, repo CatalogWriter, logger zerolog.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		repo:   repo,
		logger: logger,
	}
}

type csvRow struct {
	line        int
	ProductKey  string
	ProductName string
	SKUKey      string
	SKUName     string
	Price       decimal.Decimal
	Stock       int
	Image       string
}

type productGroup struct {
	key  string
	name string
	skus []csvRow
}

var requiredHeaders = []string{"product_key", "sku_key", "price", "stock"}

// Run parses the CSV and upserts products grouped by product key.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return res, fmt.Errorf("missing column %q", h)
		}
	}

	var current *productGroup
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line++

		row, err := parseRow(record, index, line)
		if err != nil {
			return res, err
		}
		if row == nil {
			continue
		}

		if row.ProductKey != "" {
			if current != nil {
				if err := i.save(ctx, current, &res); err != nil {
					return res, err
				}
			}
			current = &productGroup{key: row.ProductKey, name: row.ProductName}
		}
		if current == nil {
			return res, fmt.Errorf("line %d: sku %q has no product", row.line, row.SKUKey)
		}
		current.skus = append(current.skus, *row)
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (i *CSVImporter) save(ctx context.Context, g *productGroup, res *Result) error {
	name := g.name
	if name == "" {
		name = g.key
	}
	product, err := i.repo.UpsertProduct(ctx, domain.Product{Key: g.key, Name: name})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", g.key, err)
	}
	res.Products++

	for _, row := range g.skus {
		skuName := row.SKUName
		if skuName == "" {
			skuName = name
		}
		_, err := i.repo.UpsertItem(ctx, domain.Item{
			ProductID:       product.ID,
			Key:             row.SKUKey,
			Name:            skuName,
			Price:           row.Price,
			Stock:           row.Stock,
			DefaultImageURL: row.Image,
		})
		if err != nil {
			return fmt.Errorf("upsert sku %q: %w", row.SKUKey, err)
		}
		res.Items++
	}
	i.logger.Debug().Str("product", g.key).Int("skus", len(g.skus)).Msg("imported product")
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	row := &csvRow{
		line:        line,
		ProductKey:  pick(record, index, "product_key"),
		ProductName: pick(record, index, "product_name"),
		SKUKey:      pick(record, index, "sku_key"),
		SKUName:     pick(record, index, "sku_name"),
		Image:       pick(record, index, "image"),
	}
	if row.ProductKey == "" && row.SKUKey == "" {
		return nil, nil
	}
	if row.SKUKey == "" {
		return nil, fmt.Errorf("line %d: sku_key is required", line)
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("line %d: invalid price for sku %q", line, row.SKUKey)
	}
	row.Price = price

	stock, err := strconv.Atoi(pick(record, index, "stock"))
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("line %d: invalid stock for sku %q", line, row.SKUKey)
	}
	row.Stock = stock
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
