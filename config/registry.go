package config

import (
	"sort"
	"strings"
)

// Source is one allow-listed site in the curated registry
type Source struct {
	Domain string `yaml:"domain"`
	Feed   string `yaml:"feed,omitempty"`
}

// Registry maps a business category to its authoritative sites.
// The "general" entry applies to every category.
type Registry map[string][]Source

// GeneralCategory is always included in allow-list lookups
const GeneralCategory = "general"

// AllowList returns the sites for category followed by the general sites, without duplicates
func (r Registry) AllowList(category string) []Source {
	category = strings.ToLower(strings.TrimSpace(category))
	seen := make(map[string]bool)
	var out []Source
	add := func(sources []Source) {
		for _, s := range sources {
			d := strings.ToLower(s.Domain)
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, Source{Domain: d, Feed: s.Feed})
		}
	}
	if category != GeneralCategory {
		add(r[category])
	}
	add(r[GeneralCategory])
	return out
}

// Domains returns only the domain names of the allow-list for category
func (r Registry) Domains(category string) []string {
	sources := r.AllowList(category)
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Domain)
	}
	return out
}

// Feeds returns the feed URLs of every registered source, sorted
func (r Registry) Feeds() []string {
	seen := make(map[string]bool)
	var out []string
	for _, sources := range r {
		for _, s := range sources {
			if s.Feed != "" && !seen[s.Feed] {
				seen[s.Feed] = true
				out = append(out, s.Feed)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Categories returns the registered category names, sorted
func (r Registry) Categories() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry is the built-in curated source registry
func DefaultRegistry() Registry {
	return Registry{
		GeneralCategory: {
			{Domain: "trendhunter.com"},
			{Domain: "retaildive.com", Feed: "https://www.retaildive.com/feeds/news/"},
			{Domain: "mckinsey.com"},
			{Domain: "statista.com"},
			{Domain: "forbes.com"},
		},
		"home": {
			{Domain: "dezeen.com", Feed: "https://www.dezeen.com/feed/"},
			{Domain: "architecturaldigest.com"},
			{Domain: "apartmenttherapy.com", Feed: "https://www.apartmenttherapy.com/main.rss"},
			{Domain: "houzz.com"},
			{Domain: "elledecor.com"},
		},
		"clothing": {
			{Domain: "businessoffashion.com"},
			{Domain: "wwd.com", Feed: "https://wwd.com/feed/"},
			{Domain: "vogue.com"},
			{Domain: "fashionista.com"},
		},
		"footwear": {
			{Domain: "footwearnews.com", Feed: "https://footwearnews.com/feed/"},
			{Domain: "sneakernews.com"},
			{Domain: "businessoffashion.com"},
		},
		"accessories": {
			{Domain: "jckonline.com"},
			{Domain: "hodinkee.com"},
			{Domain: "businessoffashion.com"},
		},
		"electronics": {
			{Domain: "theverge.com", Feed: "https://www.theverge.com/rss/index.xml"},
			{Domain: "techcrunch.com", Feed: "https://techcrunch.com/feed/"},
			{Domain: "wired.com"},
			{Domain: "engadget.com"},
		},
		"beauty": {
			{Domain: "allure.com"},
			{Domain: "glossy.co", Feed: "https://www.glossy.co/feed/"},
			{Domain: "cosmeticsbusiness.com"},
		},
		"sports": {
			{Domain: "sportsbusinessjournal.com"},
			{Domain: "runnersworld.com"},
			{Domain: "outsideonline.com"},
		},
		"food": {
			{Domain: "fooddive.com", Feed: "https://www.fooddive.com/feeds/news/"},
			{Domain: "foodnavigator.com"},
			{Domain: "bonappetit.com"},
		},
	}
}
