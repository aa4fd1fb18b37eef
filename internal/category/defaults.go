package category

// Seed describes a category in a taxonomy to be loaded into an empty store.
type Seed struct {
	Name         string `yaml:"name"`
	Slug         string `yaml:"slug,omitempty"`
	Description  string `yaml:"description,omitempty"`
	DisplayOrder int    `yaml:"display_order,omitempty"`
	Children     []Seed `yaml:"children,omitempty"`
}

// DefaultTaxonomy is the starter category tree for a new marketplace.
// Admins are expected to customize it after setup.
var DefaultTaxonomy = []Seed{
	{
		Name: "Electronics",
		Children: []Seed{
			{
				Name: "Phones & Tablets",
				Children: []Seed{
					{Name: "Smartphones"},
					{Name: "Tablets"},
					{Name: "Phone Accessories"},
				},
			},
			{
				Name: "Computers",
				Children: []Seed{
					{Name: "Laptops"},
					{Name: "Desktops"},
					{Name: "Servers"},
					{Name: "Networking Equipment"},
				},
			},
			{Name: "Electronic Components"},
		},
	},
	{
		Name: "Industrial Machinery",
		Children: []Seed{
			{Name: "Packaging Machines"},
			{Name: "Woodworking Machinery"},
			{Name: "Food Processing Machinery"},
			{Name: "Pumps & Compressors"},
		},
	},
	{
		Name: "Apparel",
		Children: []Seed{
			{Name: "Men's Clothing"},
			{Name: "Women's Clothing"},
			{Name: "Workwear & Uniforms"},
			{Name: "Textiles & Fabrics"},
		},
	},
	{
		Name: "Home & Garden",
		Children: []Seed{
			{Name: "Home Appliances", Description: "Kitchen and household electronics and gadgets"},
			{Name: "Furniture"},
			{Name: "Garden Supplies"},
		},
	},
	{
		Name: "Agriculture",
		Children: []Seed{
			{Name: "Seeds & Bulbs"},
			{Name: "Fertilizers"},
			{Name: "Farm Machinery"},
		},
	},
	{
		Name: "Packaging & Printing",
		Children: []Seed{
			{Name: "Boxes & Cartons"},
			{Name: "Labels"},
			{Name: "Printing Services"},
		},
	},
}

// SlugOrDefault returns the seed's explicit slug or one generated from its name.
func (s Seed) SlugOrDefault() string {
	if s.Slug != "" {
		return s.Slug
	}
	return GenerateSlug(s.Name)
}
