package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/engsoc/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPage reads the `page` and `page_size` query params.
func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	for name, dst := range map[string]*int{"page": &page.Number, "page_size": &page.Size} {
		val := ctx.QueryParam(name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return core.Page{}, core.NewValidationError(core.ErrInvalidInput, core.FieldError{Field: name, Error: name + " must be a number"})
		}
		*dst = n
	}
	page.Clean()
	return page, nil
}

// boolParam returns nil when the query param is absent or invalid.
func boolParam(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

// Paginated is a page of a listing with the total count of matches.
type Paginated struct {
	Count   int         `json:"count"`
	Page    int         `json:"page"`
	Results interface{} `json:"results"`
}
