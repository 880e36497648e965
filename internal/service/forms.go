package service

import (
	"errors"
	"strconv"
	"strings"

	"inkwell/internal/models"
)

// Field lists exposed by the post forms. The edit form additionally lets the
// author replace the attached image.
var (
	CreatePostFields = []string{"text", "group"}
	EditPostFields   = []string{"text", "group", "image"}
)

// PostForm is the state of the create/edit post form as rendered and as
// submitted. Errors are keyed by field name; "__all__" holds non-field errors.
type PostForm struct {
	Fields  []string
	Text    string
	GroupID *uint
	Image   string
	IsEdit  bool
	PostID  uint
	Errors  map[string]string
}

// NewCreateForm returns an empty create form.
func NewCreateForm() *PostForm {
	return &PostForm{Fields: CreatePostFields, Errors: map[string]string{}}
}

// NewEditForm returns an edit form bound to the current values of post.
func NewEditForm(post *models.Post) *PostForm {
	return &PostForm{
		Fields:  EditPostFields,
		Text:    post.Text,
		GroupID: post.GroupID,
		Image:   post.Image,
		IsEdit:  true,
		PostID:  post.ID,
		Errors:  map[string]string{},
	}
}

// HasField reports whether the form exposes name.
func (f *PostForm) HasField(name string) bool {
	for _, field := range f.Fields {
		if field == name {
			return true
		}
	}
	return false
}

// SetGroup parses the submitted group select value. Empty means no group.
func (f *PostForm) SetGroup(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		f.GroupID = nil
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		f.AddError("group", "Select a valid choice. That choice is not one of the available choices.")
		return
	}
	gid := uint(id)
	f.GroupID = &gid
}

// GroupValue is the select value for the bound group, "" when unset.
func (f *PostForm) GroupValue() string {
	if f.GroupID == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*f.GroupID), 10)
}

func (f *PostForm) AddError(field, msg string) {
	if f.Errors == nil {
		f.Errors = map[string]string{}
	}
	if _, exists := f.Errors[field]; !exists {
		f.Errors[field] = msg
	}
}

func (f *PostForm) Valid() bool {
	return len(f.Errors) == 0
}

// BindError attaches a service error to the form. Field validation errors
// land on their input, anything else on "__all__".
func (f *PostForm) BindError(err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		f.AddError("__all__", err.Error())
		return
	}
	if appErr.Code == models.CodeValidation && appErr.Field != "" {
		f.AddError(appErr.Field, appErr.Message)
		return
	}
	f.AddError("__all__", appErr.Message)
}
