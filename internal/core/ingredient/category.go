package ingredient

import "strings"

// Category 食材分類，固定 13 種
type Category string

const (
	CategoryMeat       Category = "meat"
	CategorySeafood    Category = "seafood"
	CategoryVegetables Category = "vegetables"
	CategoryFruits     Category = "fruits"
	CategoryGrains     Category = "grains"
	CategoryDairy      Category = "dairy"
	CategoryEggs       Category = "eggs"
	CategoryLegumes    Category = "legumes"
	CategoryNuts       Category = "nuts"
	CategorySpices     Category = "spices"
	CategoryCondiments Category = "condiments"
	CategoryOils       Category = "oils"
	CategoryBeverages  Category = "beverages"

	// DefaultCategory 無法對應時使用的分類
	DefaultCategory = CategoryCondiments
)

// Categories 所有合法分類
var Categories = []Category{
	CategoryMeat, CategorySeafood, CategoryVegetables, CategoryFruits, CategoryGrains,
	CategoryDairy, CategoryEggs, CategoryLegumes, CategoryNuts, CategorySpices,
	CategoryCondiments, CategoryOils, CategoryBeverages,
}

// Valid 檢查分類是否屬於固定清單
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// categorySynonyms 同義詞對照表，鍵為 Normalize 後的字串
var categorySynonyms = map[string]Category{
	"poultry": CategoryMeat, "pork": CategoryMeat, "beef": CategoryMeat, "chicken": CategoryMeat,
	"lamb": CategoryMeat, "duck": CategoryMeat, "game": CategoryMeat, "red-meat": CategoryMeat,
	"processed-meat": CategoryMeat, "sausage": CategoryMeat, "offal": CategoryMeat, "protein": CategoryMeat,
	"thit": CategoryMeat,

	"fish": CategorySeafood, "shellfish": CategorySeafood, "shrimp": CategorySeafood,
	"crustacean": CategorySeafood, "crustaceans": CategorySeafood, "mollusk": CategorySeafood,
	"squid": CategorySeafood, "sea-food": CategorySeafood, "hai-san": CategorySeafood,

	"vegetable": CategoryVegetables, "veggie": CategoryVegetables, "veggies": CategoryVegetables,
	"greens": CategoryVegetables, "leafy-greens": CategoryVegetables, "mushroom": CategoryVegetables,
	"mushrooms": CategoryVegetables, "fungi": CategoryVegetables, "root-vegetable": CategoryVegetables,
	"tuber": CategoryVegetables, "produce": CategoryVegetables, "rau": CategoryVegetables,

	"fruit": CategoryFruits, "berry": CategoryFruits, "berries": CategoryFruits,
	"citrus": CategoryFruits, "trai-cay": CategoryFruits,

	"grain": CategoryGrains, "cereal": CategoryGrains, "cereals": CategoryGrains,
	"rice": CategoryGrains, "noodle": CategoryGrains, "noodles": CategoryGrains, "pasta": CategoryGrains,
	"bread": CategoryGrains, "flour": CategoryGrains, "starch": CategoryGrains, "bakery": CategoryGrains,

	"milk": CategoryDairy, "cheese": CategoryDairy, "yogurt": CategoryDairy, "cream": CategoryDairy,
	"dairy-products": CategoryDairy,

	"egg": CategoryEggs, "trung": CategoryEggs,

	"legume": CategoryLegumes, "bean": CategoryLegumes, "beans": CategoryLegumes,
	"pulses": CategoryLegumes, "tofu": CategoryLegumes, "soy": CategoryLegumes,

	"nut": CategoryNuts, "seed": CategoryNuts, "seeds": CategoryNuts,
	"nuts-seeds": CategoryNuts, "nuts-and-seeds": CategoryNuts,

	"spice": CategorySpices, "herb": CategorySpices, "herbs": CategorySpices,
	"aromatics": CategorySpices, "herbs-spices": CategorySpices, "gia-vi": CategorySpices,

	"condiment": CategoryCondiments, "sauce": CategoryCondiments, "sauces": CategoryCondiments,
	"seasoning": CategoryCondiments, "seasonings": CategoryCondiments, "dressing": CategoryCondiments,
	"sweetener": CategoryCondiments, "sugar": CategoryCondiments, "unknown": CategoryCondiments,
	"other": CategoryCondiments, "others": CategoryCondiments, "misc": CategoryCondiments,
	"miscellaneous": CategoryCondiments,

	"oil": CategoryOils, "fat": CategoryOils, "fats": CategoryOils,
	"oils-fats": CategoryOils, "oils-and-fats": CategoryOils, "cooking-oil": CategoryOils,

	"beverage": CategoryBeverages, "drink": CategoryBeverages, "drinks": CategoryBeverages,
	"juice": CategoryBeverages, "tea": CategoryBeverages, "coffee": CategoryBeverages,
	"alcohol": CategoryBeverages, "wine": CategoryBeverages,
}

// CoerceCategory 將任意字串轉為合法分類，對應不到時回傳 DefaultCategory
func CoerceCategory(raw string) Category {
	key := Normalize(raw)
	if c := Category(key); c.Valid() {
		return c
	}
	if c, ok := categorySynonyms[key]; ok {
		return c
	}
	// 複數形式再試一次
	if trimmed := strings.TrimSuffix(key, "s"); trimmed != key {
		if c := Category(trimmed); c.Valid() {
			return c
		}
		if c, ok := categorySynonyms[trimmed]; ok {
			return c
		}
	}
	return DefaultCategory
}
