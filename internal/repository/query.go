package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
	"project-tracker/internal/validation"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ListQuery describes a filtered, searched, ordered and paginated listing.
type ListQuery struct {
	Filters  map[string]string
	Search   string
	Ordering []string
	Page     int
	PageSize int
}

// Page is one slice of a listing plus the total number of matching rows.
type Page[T any] struct {
	Count int64
	Items []T
}

// Filter binds a request filter to its column and the values it accepts.
type Filter struct {
	Column string
	// Choice reports whether value names an existing choice. Nil means any
	// positive id.
	Choice func(value string) bool
}

// Fields whitelists what a resource can be filtered, searched and ordered by.
// Filter and Order map request names to columns.
type Fields struct {
	Filter map[string]Filter
	Search []string
	Order  map[string]string
}

var (
	projectFields = Fields{
		Filter: map[string]Filter{
			"status":   {Column: "status", Choice: func(v string) bool { return model.ProjectStatus(v).Valid() }},
			"priority": {Column: "priority", Choice: func(v string) bool { return model.Priority(v).Valid() }},
			"category": {Column: "category_id"},
		},
		Search: []string{"name", "description"},
		Order:  map[string]string{"created_at": "created_at", "start_date": "start_date", "end_date": "end_date"},
	}
	categoryFields = Fields{
		Search: []string{"name", "description"},
		Order:  map[string]string{"name": "name", "created_at": "created_at"},
	}
	taskFields = Fields{
		Filter: map[string]Filter{
			"status":   {Column: "status", Choice: func(v string) bool { return model.TaskStatus(v).Valid() }},
			"priority": {Column: "priority", Choice: func(v string) bool { return model.Priority(v).Valid() }},
			"project":  {Column: "project_id"},
		},
		Search: []string{"title", "description"},
		Order:  map[string]string{"created_at": "created_at", "due_date": "due_date", "priority": "priority"},
	}
)

// ParseOrdering splits "a,-b" into its terms.
func ParseOrdering(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// check rejects filter values that match no choice or id, the way a
// filter form reports them.
func (q ListQuery) check(f Fields) error {
	errs := validation.Errors{}
	for key, value := range q.Filters {
		def, ok := f.Filter[key]
		if !ok || value == "" {
			continue
		}
		if def.Choice != nil {
			if !def.Choice(value) {
				errs.Add(key, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value))
			}
			continue
		}
		if id, err := strconv.ParseUint(value, 10, 64); err != nil || id == 0 {
			errs.Add(key, "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	return errs.Err()
}

func (q ListQuery) filter(db *gorm.DB, f Fields) *gorm.DB {
	for key, value := range q.Filters {
		def, ok := f.Filter[key]
		if !ok || value == "" {
			continue
		}
		db = db.Where(clause.Eq{Column: clause.Column{Name: def.Column}, Value: value})
	}
	if term := strings.TrimSpace(q.Search); term != "" && len(f.Search) > 0 {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		conds := make([]string, len(f.Search))
		args := make([]any, len(f.Search))
		for i, column := range f.Search {
			conds[i] = "LOWER(" + column + `) LIKE ? ESCAPE '\'`
			args[i] = like
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func (q ListQuery) order(db *gorm.DB, f Fields) *gorm.DB {
	applied := false
	for _, term := range q.Ordering {
		desc := strings.HasPrefix(term, "-")
		column, ok := f.Order[strings.TrimPrefix(term, "-")]
		if !ok {
			continue
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
		applied = true
	}
	if !applied {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
}

func (q ListQuery) paginate(db *gorm.DB) *gorm.DB {
	if q.PageSize <= 0 {
		return db
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * q.PageSize).Limit(q.PageSize)
}

// notFound maps gorm's sentinel onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
