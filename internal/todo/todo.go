package todo

import (
	"fmt"
	"time"

	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
)

const apiPrefix = "/api/v1"

// ToDo is a short markdown post owned by one user.
type ToDo struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	BodyHTML  string    `json:"body_html"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
}

func URLFor(id int64) string {
	return fmt.Sprintf("%s/todos/%d", apiPrefix, id)
}

func UserTodosURL(userID int64) string {
	return fmt.Sprintf("%s/users/%d/todos/", apiPrefix, userID)
}

func (t *ToDo) ToResponse() ToDoResponse {
	return ToDoResponse{
		URL:       URLFor(t.ID),
		Body:      t.Body,
		BodyHTML:  t.BodyHTML,
		Timestamp: t.Timestamp,
		AuthorURL: fmt.Sprintf("%s/users/%d", apiPrefix, t.UserID),
	}
}

func ToDataModel(t *ToDo) *todoDatamodel.ToDo {
	return &todoDatamodel.ToDo{
		ID:        t.ID,
		Body:      t.Body,
		BodyHTML:  t.BodyHTML,
		Timestamp: t.Timestamp,
		UserID:    t.UserID,
	}
}

func FromDataModel(t *todoDatamodel.ToDo) *ToDo {
	return &ToDo{
		ID:        t.ID,
		Body:      t.Body,
		BodyHTML:  t.BodyHTML,
		Timestamp: t.Timestamp,
		UserID:    t.UserID,
	}
}

// Page is one slice of a newest-first listing.
type Page struct {
	Items   []*ToDo
	Page    int
	PerPage int
	Total   int64
}

func (p *Page) HasPrev() bool {
	return p.Page > 1
}

func (p *Page) HasNext() bool {
	if p.Total <= 0 || p.PerPage <= 0 {
		return false
	}
	return int64(p.Page-1) < (p.Total-1)/int64(p.PerPage)
}
