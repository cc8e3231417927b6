package normalizer

// Word tables used by the rule-based capabilities.

var stopWords = setOf(
	"a", "an", "the", "in", "on", "of", "for", "about", "what", "whats", "are", "is", "was", "were",
	"which", "how", "will", "would", "be", "to", "with", "and", "or", "me", "show", "tell", "give",
	"find", "research", "do", "does", "i", "we", "our", "my", "across", "within", "at", "by", "from",
	"into", "around", "over", "regarding", "there", "any", "some", "can", "you", "please", "look",
	"looking", "should", "could", "its", "their", "this", "that", "these", "those", "between", "among",
)

// fillerWords are trimmed from the edges of a focus phrase
var fillerWords = setOf(
	"market", "markets", "industry", "sector", "insights", "insight", "analysis", "data", "report",
	"reports", "overview", "landscape", "space", "segment", "products", "product",
)

// genericWords carry no subject on their own; a query made only of these is vague
var genericWords = setOf(
	"tech", "technology", "technologies", "market", "markets", "industry", "industries", "product",
	"products", "things", "stuff", "business", "businesses", "new", "innovation", "innovations",
	"ideas", "idea", "topics", "topic", "news", "popular", "hot", "top", "best", "good", "general",
	"everything", "anything", "world", "consumer", "consumers", "customer", "customers", "retail",
	"ecommerce", "e-commerce", "sales", "stuffs", "items", "goods", "categories", "category",
)

var objectiveWords = map[string]string{
	"trend":       "trend",
	"trends":      "trend",
	"trending":    "trend",
	"forecast":    "prediction",
	"forecasts":   "prediction",
	"predict":     "prediction",
	"prediction":  "prediction",
	"predictions": "prediction",
	"outlook":     "prediction",
	"compare":     "comparison",
	"comparison":  "comparison",
	"comparing":   "comparison",
	"versus":      "comparison",
	"vs":          "comparison",
}

// temporalTerms lists the recognised time references, in priority order
var temporalTerms = []string{
	"recent", "current", "latest", "upcoming", "future",
	"past", "previous", "historical", "next", "last",
}

var separatorWords = setOf("and", "vs", "versus", "or", "&")

var offScopeMarkers = setOf(
	"joke", "jokes", "poem", "poems", "lyrics", "recipe", "recipes", "weather", "horoscope",
	"homework", "translate", "riddle", "story", "stories", "password", "hack", "sing", "dating",
)

// geographies maps lowercase names, including multiword ones, to their display form
var geographies = map[string]string{
	"france": "France", "germany": "Germany", "italy": "Italy", "spain": "Spain",
	"portugal": "Portugal", "netherlands": "Netherlands", "belgium": "Belgium", "sweden": "Sweden",
	"norway": "Norway", "denmark": "Denmark", "finland": "Finland", "poland": "Poland",
	"switzerland": "Switzerland", "austria": "Austria", "ireland": "Ireland", "uk": "United Kingdom",
	"britain": "United Kingdom", "united kingdom": "United Kingdom", "england": "United Kingdom",
	"usa": "United States", "america": "United States", "united states": "United States",
	"canada": "Canada", "mexico": "Mexico", "brazil": "Brazil", "argentina": "Argentina",
	"japan": "Japan", "china": "China", "india": "India", "korea": "South Korea",
	"south korea": "South Korea", "singapore": "Singapore", "indonesia": "Indonesia",
	"australia": "Australia", "new zealand": "New Zealand", "south africa": "South Africa",
	"nigeria": "Nigeria", "uae": "United Arab Emirates", "dubai": "United Arab Emirates",
	"saudi arabia": "Saudi Arabia", "turkey": "Turkey",
	"europe": "Europe", "asia": "Asia", "africa": "Africa", "north america": "North America",
	"latin america": "Latin America", "middle east": "Middle East", "southeast asia": "Southeast Asia",
	"global": "global", "worldwide": "global",
}

// categoryTerms maps product words to the business category used for the source registry
var categoryTerms = map[string]string{
	"furniture": "home", "decor": "home", "kitchenware": "home", "bedding": "home", "sofa": "home",
	"couch": "home", "bed": "home", "chair": "home", "table": "home", "lamp": "home", "rug": "home",
	"curtain": "home", "mattress": "home", "kitchen": "home", "interior": "home", "home": "home",
	"shirt": "clothing", "pant": "clothing", "dress": "clothing", "outerwear": "clothing",
	"underwear": "clothing", "jacket": "clothing", "coat": "clothing", "apparel": "clothing",
	"fashion": "clothing", "clothing": "clothing", "jean": "clothing", "knitwear": "clothing",
	"shoe": "footwear", "boot": "footwear", "sandal": "footwear", "sneaker": "footwear", "footwear": "footwear",
	"bag": "accessories", "handbag": "accessories", "jewelry": "accessories", "watch": "accessories",
	"belt": "accessories", "scarf": "accessories", "sunglass": "accessories",
	"smartphone": "electronics", "phone": "electronics", "laptop": "electronics", "tablet": "electronics",
	"wearable": "electronics", "headphone": "electronics", "gadget": "electronics", "tv": "electronics",
	"smartwatch": "electronics", "electronic": "electronics",
	"skincare": "beauty", "makeup": "beauty", "haircare": "beauty", "fragrance": "beauty",
	"cosmetic": "beauty", "perfume": "beauty", "beauty": "beauty",
	"fitness": "sports", "running": "sports", "yoga": "sports", "cycling": "sports", "sport": "sports",
	"equipment": "sports", "outdoor": "sports",
	"food": "food", "beverage": "food", "snack": "food", "drink": "food", "coffee": "food", "tea": "food",
}

// scopeAreas lists standard analysis areas with the words that signal them
var scopeAreas = []struct {
	Name    string
	Signals []string
}{
	{"functionality", []string{"functional", "functionality", "usability", "performance", "durability", "practical", "multifunctional"}},
	{"aesthetic appeal", []string{"design", "style", "styles", "aesthetic", "aesthetics", "look", "colour", "color", "colors"}},
	{"sustainability", []string{"sustainable", "sustainability", "eco", "eco-friendly", "green", "recycled", "organic"}},
	{"technology integration", []string{"smart", "connected", "connectivity", "digital", "ai", "iot", "tech-enabled"}},
	{"health and wellness", []string{"health", "wellness", "wellbeing", "safety", "comfort", "ergonomic"}},
	{"affordability", []string{"affordable", "affordability", "cheap", "budget", "price", "pricing", "value"}},
	{"seasonality", []string{"seasonal", "season", "summer", "winter", "spring", "fall", "autumn", "holiday"}},
	{"exclusivity", []string{"luxury", "premium", "exclusive", "high-end"}},
	{"cultural alignment", []string{"cultural", "culture", "local", "traditional", "heritage"}},
	{"innovation", []string{"innovative", "innovation", "innovations", "emerging", "cutting-edge", "novel"}},
}

// defaultScope is used when a query names no analysis area
var defaultScope = []string{"innovation", "functionality"}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
