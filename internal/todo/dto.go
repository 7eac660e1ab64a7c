package todo

import (
	"time"

	"github.com/frahmantamala/todolist/internal/core/common/validation"
)

type CreateToDoDTO struct {
	Body string `json:"body"`
}

func (d CreateToDoDTO) Validate() error {
	if err := validation.ValidateToDoBody(d.Body); err != nil {
		return err
	}
	return nil
}

// UpdateToDoDTO replaces the body; an empty body is rejected like on create.
type UpdateToDoDTO struct {
	Body string `json:"body"`
}

func (d UpdateToDoDTO) Validate() error {
	if err := validation.ValidateToDoBody(d.Body); err != nil {
		return err
	}
	return nil
}

type ToDoResponse struct {
	URL       string    `json:"url"`
	Body      string    `json:"body"`
	BodyHTML  string    `json:"body_html"`
	Timestamp time.Time `json:"timestamp"`
	AuthorURL string    `json:"author_url"`
}

type ListResponse struct {
	Todos []ToDoResponse `json:"todos"`
	Prev  *string        `json:"prev"`
	Next  *string        `json:"next"`
	Count int64          `json:"count"`
}
