package render

import (
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dominium-estate/dominium/pkg/locale"
)

var titleCaser = cases.Title(language.English)

// TemplateFuncs are the helpers available to the result templates.
func TemplateFuncs(f *locale.Formatter) template.FuncMap {
	if f == nil {
		f = locale.Default()
	}
	return template.FuncMap{
		"number": f.Number,
		"join":   strings.Join,
		"title":  titleCaser.String,
		"lower":  strings.ToLower,
		"trim":   strings.TrimSpace,
	}
}

// Placeholder is shown when a listing has no images.
const Placeholder = "https://via.placeholder.com/400x300"

// SortLabels are the visible names of the sort options.
var SortLabels = map[string]string{
	"date":       "Newest first",
	"price_asc":  "Price: low to high",
	"price_desc": "Price: high to low",
	"area_asc":   "Area: small to large",
	"area_desc":  "Area: large to small",
}

// SortKeys lists the sort options in menu order.
var SortKeys = []string{"date", "price_asc", "price_desc", "area_asc", "area_desc"}

// SortLabel returns the label for key, "Default" for unknown keys.
func SortLabel(key string) string {
	if l, ok := SortLabels[key]; ok {
		return l
	}
	return "Default"
}

// dealKind classifies a deal type name as rent, sale or other. Names come
// from the admin in either English or Ukrainian.
func dealKind(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), ""))
	switch key {
	case "rent", "оренда":
		return "rent"
	case "sale", "продаж":
		return "sale"
	default:
		return ""
	}
}

func dealClass(kind string) string {
	switch kind {
	case "rent":
		return "bg-creamBeige"
	case "sale":
		return "bg-coolSage"
	default:
		return "bg-red-200"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
