// Package goqueryextractor implements Extractor using goquery CSS selection.
package goqueryextractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/drunksu/crawler/internal/pipeline"
)

// Config controls which nodes are treated as product listings.
type Config struct {
	ItemSelector  string
	TitleSelector string
	PriceSelector string
}

// Extractor implements pipeline.Extractor for catalog listing pages.
type Extractor struct {
	cfg Config
}

// New builds an Extractor. Empty selectors fall back to the catalog
// defaults.
func New(cfg Config) *Extractor {
	if cfg.ItemSelector == "" {
		cfg.ItemSelector = ".product-item"
	}
	if cfg.TitleSelector == "" {
		cfg.TitleSelector = ".title"
	}
	if cfg.PriceSelector == "" {
		cfg.PriceSelector = ".price"
	}
	return &Extractor{cfg: cfg}
}

// Extract parses the document and returns the product records it contains,
// in document order. Parse failures are converted into an error outcome and
// never propagate to the caller.
func (e *Extractor) Extract(doc pipeline.RawDocument) pipeline.Outcome {
	if len(bytes.TrimSpace(doc.Body)) == 0 {
		return pipeline.Errorf("empty content")
	}

	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return pipeline.Errorf(fmt.Sprintf("parse document: %v", err))
	}

	var records []pipeline.ProductRecord
	parsed.Find(e.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		title := item.Find(e.cfg.TitleSelector)
		price := item.Find(e.cfg.PriceSelector)
		// Nodes missing either field are skipped, not treated as errors.
		if title.Length() == 0 || price.Length() == 0 {
			return
		}
		records = append(records, pipeline.ProductRecord{
			Title: strings.TrimSpace(title.First().Text()),
			Price: strings.TrimSpace(price.First().Text()),
		})
	})

	if len(records) == 0 {
		return pipeline.Empty()
	}
	return pipeline.Success(records)
}
