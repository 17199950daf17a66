package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/services"
)

// listQueryFrom reads the shared paging and sorting parameters
func listQueryFrom(c *gin.Context, defaultPerPage int) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	query.Search = c.Query("search_term")
	query.SortBy = c.Query("sort_by")
	query.SortDir = c.DefaultQuery("sort_dir", "desc")
	query.Normalize()
	return query
}

func paginationFor(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"total":       total,
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total_pages": query.TotalPages(total),
	}
}

// dateParam parses an optional date filter; unparseable values are ignored
func dateParam(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t := services.ParseTransactionDate(raw)
	if t.IsZero() {
		return nil
	}
	return &t
}

// endOfDay widens an inclusive "to" date to cover the whole day
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
