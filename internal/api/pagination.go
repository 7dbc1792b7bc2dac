package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"project-tracker/internal/repository"
)

const maxPageSize = 100

// pageEnvelope is the paginated list body: total count, neighbour page links
// and the current page's results.
type pageEnvelope[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// listQuery reads page, page_size, search, ordering and the given filter keys
// from the query string.
func (h *handler) listQuery(c echo.Context, filters ...string) (repository.ListQuery, error) {
	q := repository.ListQuery{
		Filters:  make(map[string]string, len(filters)),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Ordering: repository.ParseOrdering(c.QueryParam("ordering")),
		Page:     1,
		PageSize: h.pageSize,
	}
	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return q, errInvalidPage
		}
		q.Page = page
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			q.PageSize = min(size, maxPageSize)
		}
	}
	for _, key := range filters {
		if v := strings.TrimSpace(c.QueryParam(key)); v != "" {
			q.Filters[key] = v
		}
	}
	return q, nil
}

type invalidPageError struct{}

func (invalidPageError) Error() string { return "Invalid page." }

var errInvalidPage = invalidPageError{}

// writePage renders one page of results, or 404 when the page is past the end.
func writePage[M, J any](c echo.Context, q repository.ListQuery, page repository.Page[M], convert func(*M) J) error {
	if q.Page > 1 && int64((q.Page-1)*q.PageSize) >= page.Count {
		return c.JSON(http.StatusNotFound, detail(errInvalidPage.Error()))
	}
	out := pageEnvelope[J]{Count: page.Count, Results: make([]J, 0, len(page.Items))}
	for i := range page.Items {
		out.Results = append(out.Results, convert(&page.Items[i]))
	}
	if int64(q.Page*q.PageSize) < page.Count {
		out.Next = pageURL(c, q.Page+1)
	}
	if q.Page > 1 {
		out.Previous = pageURL(c, q.Page-1)
	}
	return c.JSON(http.StatusOK, out)
}

// pageURL is the absolute URL of the current request at another page. The
// first page carries no page parameter.
func pageURL(c echo.Context, page int) *string {
	u := *c.Request().URL
	u.Scheme = c.Scheme()
	u.Host = c.Request().Host
	params := u.Query()
	if page <= 1 {
		params.Del("page")
	} else {
		params.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = params.Encode()
	s := u.String()
	return &s
}
