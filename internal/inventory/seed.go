package inventory

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ProductID         string `yaml:"product_id"`
	Name              string `yaml:"name"`
	Price             string `yaml:"price"`
	AvailableQuantity int    `yaml:"available_quantity"`
	ReservedQuantity  int    `yaml:"reserved_quantity"`
}

// LoadSeed reads the catalog from path, or the built-in catalog when path is empty.
func LoadSeed(path string) ([]models.StockRecord, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]models.StockRecord, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	records := make([]models.StockRecord, 0, len(file.Products))
	seen := make(map[string]bool, len(file.Products))
	for _, p := range file.Products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("seed product without product_id")
		}
		if seen[p.ProductID] {
			return nil, fmt.Errorf("duplicate seed product %s", p.ProductID)
		}
		seen[p.ProductID] = true

		if p.AvailableQuantity < 0 || p.ReservedQuantity < 0 {
			return nil, fmt.Errorf("seed product %s: quantities must not be negative", p.ProductID)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("seed product %s: invalid price %q: %w", p.ProductID, p.Price, err)
		}

		records = append(records, models.StockRecord{
			ProductID:         p.ProductID,
			Name:              p.Name,
			UnitPrice:         price,
			AvailableQuantity: p.AvailableQuantity,
			ReservedQuantity:  p.ReservedQuantity,
		})
	}
	return records, nil
}
