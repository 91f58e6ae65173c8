package enums

// ProductCategory mirrors the pharmacy shelf taxonomy.
type ProductCategory string

const (
	ProductCategoryOTC         ProductCategory = "OTC"
	ProductCategoryRX          ProductCategory = "RX"
	ProductCategorySupplements ProductCategory = "SUP"
	ProductCategoryWomens      ProductCategory = "WOM"
	ProductCategoryMens        ProductCategory = "MEN"
	ProductCategoryPediatric   ProductCategory = "PED"
	ProductCategoryHerbal      ProductCategory = "HERB"
	ProductCategoryDiagnostics ProductCategory = "DIAG"
	ProductCategoryFirstAid    ProductCategory = "FIRST"
)

func (c ProductCategory) IsValid() bool {
	switch c {
	case ProductCategoryOTC,
		ProductCategoryRX,
		ProductCategorySupplements,
		ProductCategoryWomens,
		ProductCategoryMens,
		ProductCategoryPediatric,
		ProductCategoryHerbal,
		ProductCategoryDiagnostics,
		ProductCategoryFirstAid:
		return true
	}
	return false
}
