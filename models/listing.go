package models

// Listing is a buyer-facing certificate offer.
type Listing struct {
	ID          string `json:"id" yaml:"id"`
	Kind        string `json:"kind" yaml:"kind"` // "solar", "wind", ...
	Title       string `json:"title" yaml:"title"`
	QuantityKWh int    `json:"quantityKWh" yaml:"quantityKWh"`
	Price       Money  `json:"price" yaml:"-"`
}

// DefaultListings returns the two listings offered on the buyer panel.
func DefaultListings() []Listing {
	return []Listing{
		{ID: "solar-1000", Kind: "solar", Title: "Solar Energy Certificate", QuantityKWh: 1000, Price: 10000},
		{ID: "wind-800", Kind: "wind", Title: "Wind Energy Certificate", QuantityKWh: 800, Price: 8000},
	}
}
