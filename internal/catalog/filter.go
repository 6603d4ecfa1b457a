// Package catalog turns storefront query strings into a product listing plan.
//
// Only a closed set of facets is understood. Unknown keys and unrecognized
// values are dropped, never rejected, so a shared or stale URL always renders.
package catalog

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
)

// PageSize is the fixed number of products per listing page.
const PageSize = 24

type Facet string

const (
	FacetGender   Facet = "gender"
	FacetColor    Facet = "color"
	FacetSize     Facet = "size"
	FacetMinPrice Facet = "minPrice"
	FacetMaxPrice Facet = "maxPrice"
)

// Facets lists every filter facet in the order predicates are applied.
var Facets = []Facet{FacetGender, FacetColor, FacetSize, FacetMinPrice, FacetMaxPrice}

type Sort string

const (
	SortFeatured  Sort = "featured"
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

func (s Sort) Valid() bool {
	switch s {
	case SortFeatured, SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// Plan is the normalized form of a listing request.
// Prices are in minor currency units.
type Plan struct {
	Genders  []model.Gender
	Colors   []string
	Sizes    []string
	MinPrice *int64
	MaxPrice *int64
	Sort     Sort
	Page     int
}

func (p Plan) Offset() int { return (p.Page - 1) * PageSize }

func (p Plan) Limit() int { return PageSize }

// Active reports whether the facet constrains the result set.
func (p Plan) Active(f Facet) bool {
	switch f {
	case FacetGender:
		return len(p.Genders) > 0
	case FacetColor:
		return len(p.Colors) > 0
	case FacetSize:
		return len(p.Sizes) > 0
	case FacetMinPrice:
		return p.MinPrice != nil
	case FacetMaxPrice:
		return p.MaxPrice != nil
	}
	return false
}

// ParsePlan builds a Plan from raw query values.
//
// Multi-valued facets accept repeated keys (color=red&color=blue), the
// bracketed form (color[]=red) and comma separated lists (color=red,blue).
// minPrice and maxPrice are whole currency units.
func ParsePlan(q url.Values) Plan {
	p := Plan{Sort: SortFeatured, Page: 1}

	for _, g := range multi(q, string(FacetGender)) {
		gender := model.Gender(g)
		if gender.Valid() {
			p.Genders = append(p.Genders, gender)
		}
	}
	p.Genders = dedupeGenders(p.Genders)

	p.Colors = dedupe(filterSlugs(multi(q, string(FacetColor))))
	p.Sizes = dedupe(filterSlugs(multi(q, string(FacetSize))))

	p.MinPrice = parsePrice(q.Get(string(FacetMinPrice)))
	p.MaxPrice = parsePrice(q.Get(string(FacetMaxPrice)))
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		p.MinPrice, p.MaxPrice = p.MaxPrice, p.MinPrice
	}

	if s := Sort(strings.TrimSpace(q.Get("sort"))); s.Valid() {
		p.Sort = s
	}

	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && v >= 1 {
		p.Page = v
	}

	return p
}

// Values renders the plan back to a canonical query string.
func (p Plan) Values() url.Values {
	v := url.Values{}
	for _, g := range p.Genders {
		v.Add(string(FacetGender), string(g))
	}
	for _, c := range p.Colors {
		v.Add(string(FacetColor), c)
	}
	for _, s := range p.Sizes {
		v.Add(string(FacetSize), s)
	}
	if p.MinPrice != nil {
		v.Set(string(FacetMinPrice), strconv.FormatInt(*p.MinPrice/100, 10))
	}
	if p.MaxPrice != nil {
		v.Set(string(FacetMaxPrice), strconv.FormatInt(*p.MaxPrice/100, 10))
	}
	if p.Sort != SortFeatured {
		v.Set("sort", string(p.Sort))
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

func multi(q url.Values, key string) []string {
	raw := append(append([]string{}, q[key]...), q[key+"[]"]...)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// slugとして妥当なものだけ残す
func filterSlugs(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if isSlug(s) {
			out = append(out, s)
		}
	}
	return out
}

func isSlug(s string) bool {
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func parsePrice(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > 1e9 {
		return nil
	}
	cents := int64(f*100 + 0.5)
	return &cents
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func dedupeGenders(in []model.Gender) []model.Gender {
	if len(in) == 0 {
		return nil
	}
	strs := make([]string, len(in))
	for i, g := range in {
		strs[i] = string(g)
	}
	strs = dedupe(strs)
	out := make([]model.Gender, len(strs))
	for i, s := range strs {
		out[i] = model.Gender(s)
	}
	return out
}
