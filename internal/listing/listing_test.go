package listing

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/internal/model"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func product(id int, title string, price int64, color string) model.Product {
	return model.Product{ID: id, Title: title, Price: decimal.NewFromInt(price), Color: color, IsActive: true}
}

func ids(items []model.Product) []int {
	out := make([]int, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func manyProducts(n int) []model.Product {
	out := make([]model.Product, n)
	for i := range out {
		out[i] = product(i+1, fmt.Sprintf("Wine %02d", i+1), int64(10+i), "Red")
	}
	return out
}

func TestFilter_Conjunction(t *testing.T) {
	products := []model.Product{
		product(1, "Merlot", 10, "Red"),
		product(2, "Chardonnay", 50, "White"),
	}

	got := Filter(products, Filters{Color: "Red", MinPrice: dec(20)})
	assert.Empty(t, got)

	got = Filter(products, Filters{Color: "Red"})
	assert.Equal(t, []int{1}, ids(got))

	got = Filter(products, Filters{MinPrice: dec(20)})
	assert.Equal(t, []int{2}, ids(got))
}

func TestFilter_UsesEffectivePrice(t *testing.T) {
	p := product(1, "Rioja", 40, "Red")
	p.DiscountPrice = dec(15)

	assert.True(t, Matches(p, Filters{MaxPrice: dec(20)}))
	assert.False(t, Matches(p, Filters{MinPrice: dec(20)}))

	// a "discount" above the list price is ignored
	p.DiscountPrice = dec(60)
	assert.False(t, Matches(p, Filters{MaxPrice: dec(20)}))
}

func TestFilter_CategoryAndSweetness(t *testing.T) {
	a := product(1, "Port", 30, "Red")
	a.CategoryID, a.SubCategoryID, a.Sweetness = 1, 4, "Fortified"
	b := product(2, "Riesling", 25, "White")
	b.CategoryID, b.SubCategoryID, b.Sweetness = 1, 5, "Sweet"

	got := Filter([]model.Product{a, b}, Filters{CategoryID: 1, Sweetness: "sweet"})
	assert.Equal(t, []int{2}, ids(got))

	got = Filter([]model.Product{a, b}, Filters{SubCategoryID: 4})
	assert.Equal(t, []int{1}, ids(got))
}

func TestSearch_CaseInsensitive(t *testing.T) {
	products := []model.Product{product(1, "Château Margaux", 900, "Red"), product(2, "Cava Brut", 12, "White")}
	assert.Equal(t, []int{2}, ids(Search(products, "  cava ")))
	assert.Len(t, Search(products, ""), 2)
}

func TestSort_Name(t *testing.T) {
	products := []model.Product{
		product(1, "merlot", 10, "Red"),
		product(2, "Barolo", 10, "Red"),
		product(3, "Amarone", 10, "Red"),
	}
	assert.Equal(t, []int{3, 2, 1}, ids(Sort(products, SortName)))
	assert.Equal(t, []int{1, 2, 3}, ids(products), "input must not be reordered")
}

func TestSort_NewestIsStable(t *testing.T) {
	d := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	a := product(1, "A", 10, "Red")
	a.Year = 2015
	b := product(2, "B", 10, "Red")
	b.ProdDate = &d
	c := product(3, "C", 10, "Red")
	c.Year = 2019

	assert.Equal(t, []int{2, 3, 1}, ids(Sort([]model.Product{a, b, c}, SortNewest)))
}

func TestSort_UnknownKeyKeepsOrder(t *testing.T) {
	products := manyProducts(4)
	assert.Equal(t, ids(products), ids(Sort(products, SortKey("price-desc"))))
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortName, ParseSort("Name"))
	assert.Equal(t, SortNewest, ParseSort("newest"))
	assert.Equal(t, SortNone, ParseSort("cheapest"))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 9))
	assert.Equal(t, 1, TotalPages(9, 9))
	assert.Equal(t, 2, TotalPages(10, 9))
	assert.Equal(t, 3, TotalPages(17, 8))
}

func TestDerive_PaginationClampsAfterFilter(t *testing.T) {
	products := manyProducts(10)

	res := Derive(products, State{Page: 2, PageSize: 9})
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 2, res.CurrentPage)
	assert.Len(t, res.Items, 1)

	// the filter narrows the result to five items; page 2 no longer exists
	res = Derive(products, State{Page: 2, PageSize: 9, Filters: Filters{MaxPrice: dec(14)}})
	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Len(t, res.Items, 5)
}

func TestDerive_Empty(t *testing.T) {
	res := Derive(manyProducts(3), State{Search: "whisky", Page: 4})
	assert.True(t, res.Empty)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, DefaultPageSize, res.PageSize)
	assert.Empty(t, res.Items)
}

func TestDerive_PipelineOrder(t *testing.T) {
	products := []model.Product{
		product(1, "Zinfandel", 20, "Red"),
		product(2, "Pinot Noir", 25, "Red"),
		product(3, "Pinot Grigio", 18, "White"),
		product(4, "Pinot Meunier", 30, "Red"),
	}
	res := Derive(products, State{Search: "pinot", Filters: Filters{Color: "Red"}, Sort: SortName, Page: 1, PageSize: 1})

	require.Len(t, res.Items, 1)
	assert.Equal(t, 4, res.Items[0].ID)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
}

func TestState_Reset(t *testing.T) {
	prev := State{Search: "rose", Page: 3, PageSize: 9}

	same := State{Search: "rose", Page: 3, PageSize: 9}
	assert.Equal(t, 3, same.Reset(prev).Page)

	changedSearch := State{Search: "rosé", Page: 3}
	assert.Equal(t, 1, changedSearch.Reset(prev).Page)

	changedFilter := State{Search: "rose", Page: 3, Filters: Filters{MinPrice: dec(5)}}
	assert.Equal(t, 1, changedFilter.Reset(prev).Page)

	changedSort := State{Search: "rose", Page: 3, Sort: SortNewest}
	assert.Equal(t, 1, changedSort.Reset(prev).Page)
}

func TestFilters_EqualComparesPriceValues(t *testing.T) {
	assert.True(t, Filters{MinPrice: dec(5)}.Equal(Filters{MinPrice: dec(5)}))
	assert.False(t, Filters{MinPrice: dec(5)}.Equal(Filters{}))
	assert.True(t, Filters{Color: "RED"}.Equal(Filters{Color: "red"}))
}

func TestPageSizer(t *testing.T) {
	ps := PageSizer{Narrow: 8, Wide: 9, Breakpoint: 900}
	assert.Equal(t, 8, ps.For(899))
	assert.Equal(t, 9, ps.For(900))
	assert.Equal(t, 9, ps.For(0))
	assert.Equal(t, DefaultPageSize, PageSizer{Breakpoint: 900}.For(1200))
}
