// Package catalog отдаёт товары магазина и вычисляет бестселлеры.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultBestsellerCount: сколько товаров образуют комбо.
const DefaultBestsellerCount = 3

type document struct {
	Products []domain.Product `yaml:"products"`
}

// Provider хранит неизменяемый снимок каталога.
type Provider struct {
	products []domain.Product
	index    map[string]int

	bestsellerCount int
	bestsellersOnce sync.Once
	bestsellers     []string
}

// Default загружает встроенный каталог.
func Default() (*Provider, error) {
	return Load(bytes.NewReader(defaultCatalog), DefaultBestsellerCount)
}

// LoadFile загружает каталог из YAML-файла.
func LoadFile(path string, bestsellerCount int) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, bestsellerCount)
}

// Load читает YAML-документ вида {products: [...]} и проверяет его.
func Load(r io.Reader, bestsellerCount int) (*Provider, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Products, bestsellerCount)
}

// New создаёт каталог из списка товаров.
func New(products []domain.Product, bestsellerCount int) (*Provider, error) {
	if bestsellerCount < 0 {
		bestsellerCount = DefaultBestsellerCount
	}
	p := &Provider{
		products:        make([]domain.Product, 0, len(products)),
		index:           make(map[string]int, len(products)),
		bestsellerCount: bestsellerCount,
	}
	for _, product := range products {
		id := strings.TrimSpace(product.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog product without id: %q", product.Name)
		}
		if _, dup := p.index[id]; dup {
			return nil, fmt.Errorf("duplicate catalog product id %q", id)
		}
		if product.Price < 0 {
			return nil, fmt.Errorf("catalog product %q has negative price", id)
		}
		product.ID = id
		p.index[id] = len(p.products)
		p.products = append(p.products, product)
	}
	return p, nil
}

// Products возвращает копию списка товаров в порядке каталога.
func (p *Provider) Products() []domain.Product {
	out := make([]domain.Product, len(p.products))
	copy(out, p.products)
	return out
}

// Lookup ищет товар по id.
func (p *Provider) Lookup(id string) (domain.Product, error) {
	i, ok := p.index[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p.products[i], nil
}

// Bestsellers возвращает id бестселлеров. Значение вычисляется один раз на снимок каталога.
func (p *Provider) Bestsellers() []string {
	p.bestsellersOnce.Do(func() {
		p.bestsellers = pricing.BestsellerSet(p.products, p.bestsellerCount)
	})
	return append([]string(nil), p.bestsellers...)
}

// IsBestseller сообщает, входит ли товар в комбо.
func (p *Provider) IsBestseller(id string) bool {
	for _, b := range p.Bestsellers() {
		if b == id {
			return true
		}
	}
	return false
}
