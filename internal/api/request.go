package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/taller-core/internal/auth"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is empty", errInvalidBody)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errInvalidBody, maxErr.Limit)
		}
		return fmt.Errorf("%w: %s", errInvalidBody, jsonErrorText(err))
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", errInvalidBody)
	}
	return nil
}

// jsonErrorText describes a decode failure without echoing the payload.
func jsonErrorText(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
	}
	return "malformed JSON"
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errInvalidID, name)
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter. ok is false when
// the parameter is absent.
func queryInt64(r *http.Request, name string) (value int64, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", errInvalidQuery, name)
	}
	return value, true, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v, ok, err := queryInt64(r, name)
	if err != nil || !ok {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %s cannot be negative", errInvalidQuery, name)
	}
	return int(v), nil
}

// pageFrom reads skip and limit. Zero or absent limit means the default.
func pageFrom(r *http.Request) (tenant.Page, error) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		return tenant.Page{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return tenant.Page{}, err
	}
	return tenant.Page{Skip: skip, Limit: limit}.Normalize(), nil
}

// requestedWorkshop returns the workshop_id query parameter, or nil.
// Non-admins may not send the parameter at all, even empty.
func requestedWorkshop(r *http.Request) (*int64, error) {
	if r.URL.Query().Has("workshop_id") && !identityFrom(r).IsAdmin() {
		return nil, auth.ErrForbidden
	}
	id, ok, err := queryInt64(r, "workshop_id")
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// workshopField is a workshop_id body field that records whether the key
// was sent. An explicit null counts as sent.
type workshopField struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON is called for null as well, which is what marks Set.
func (f *workshopField) UnmarshalJSON(data []byte) error {
	f.Set = true
	f.Value = nil
	if string(data) == "null" {
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(id), Field: "workshop_id"}
	}
	f.Value = &id
	return nil
}

// readScope resolves the list scope for the caller from ?workshop_id.
func readScope(r *http.Request) (tenant.Scope, error) {
	requested, err := requestedWorkshop(r)
	if err != nil {
		return tenant.Scope{}, err
	}
	return auth.ScopeFor(identityFrom(r), requested)
}

// identityFrom returns the caller identity placed by authMiddleware.
func identityFrom(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// listResponse is the envelope for collection endpoints.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func newList[T any](items []T, page tenant.Page) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items), Skip: page.Skip, Limit: page.Limit}
}
