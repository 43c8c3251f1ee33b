package memory

import "github.com/utafrali/partsquote/internal/domain"

func price(v float64) domain.Price { return domain.PriceFromFloat(v) }

// SeedProducts returns a small catalog covering sized, flat-priced and
// price-on-application products.
func SeedProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "BFLYW316",
			Slug:        "butterfly-valve-316-stainless-steel-cf8m-body-ptfe",
			SKU:         "BFLYW316",
			Name:        "Butterfly Valve - CF8M Full 316 Stainless Steel - PTFE - Wafer Universal",
			Brand:       "Straub",
			Category:    "Valves",
			Description: "Stainless steel bodied CF8M butterfly valve with PTFE seat. Universal wafer design, lever operated.",
			Image:       "/images/products/nobg/BFLYW316_nobg.png",
			LeadTime:    "7 days if nil stock",
			SizeVariations: []domain.SizeVariation{
				{Value: "50mm", Label: "50mm DN50 (2\") Nominal Bore", Price: price(285), SKU: "BFLYW316-50"},
				{Value: "80mm", Label: "80mm DN80 (3\") Nominal Bore", Price: price(375), SKU: "BFLYW316-80"},
				{Value: "100mm", Label: "100mm DN100 (4\") Nominal Bore", Price: price(425), SKU: "BFLYW316-100"},
				{Value: "150mm", Label: "150mm", Price: price(625), SKU: "BFLYW316-150"},
			},
		},
		{
			ID:          "STRAUB-METAL-GRIP",
			Slug:        "straub-metal-grip",
			SKU:         "SMG",
			Name:        "Straub Metal Grip Pipe Coupling",
			Brand:       "Straub",
			Category:    "Pipe Couplings",
			Description: "Axially restrained coupling for joining plain-ended metal pipes.",
			LeadTime:    "2-3 weeks",
			SizeVariations: []domain.SizeVariation{
				{Value: "60.3mm", Label: "60.3mm OD", Price: price(198.5), SKU: "SMG-603"},
				{Value: "114.3mm", Label: "114.3mm OD", Price: price(312), SKU: "SMG-1143"},
				{Value: "168.3mm", Label: "168.3mm OD"},
			},
		},
		{
			ID:          "DJ-REPAIR-CLAMP",
			Slug:        "orbit-repair-clamp",
			SKU:         "ORC",
			Name:        "Orbit Pipe Repair Clamp",
			Brand:       "Orbit",
			Category:    "Pipe Repair",
			Description: "Single-band stainless repair clamp. Made to order to the pipe outside diameter.",
			LeadTime:    "4-6 weeks",
		},
		{
			ID:          "FLG-GASKET-EPDM",
			Slug:        "flange-gasket-epdm",
			SKU:         "FGE",
			Name:        "Full Face Flange Gasket - EPDM",
			Brand:       "DeWater",
			Category:    "Gaskets",
			Description: "Full face EPDM gasket for table E and PN16 flanges.",
			Price:       price(18.9),
			LeadTime:    "In stock",
		},
		{
			ID:          "DUCKBILL-CV",
			Slug:        "duckbill-check-valve",
			SKU:         "DBV",
			Name:        "Duckbill Check Valve - Slip On",
			Brand:       "DeWater",
			Category:    "Valves",
			Description: "Rubber duckbill check valve for outfalls and stormwater.",
			LeadTime:    "6-8 weeks",
			SizeVariations: []domain.SizeVariation{
				{Value: "100mm", Label: "100mm", Price: price(640), SKU: "DBV-100"},
			},
		},
	}
}
