// Package cursor encodes keyset pagination positions as opaque tokens.
//
// A token is the base64 encoding of {"createdAt": RFC3339Nano, "id": uuid}
// taken from the last row of a page. Rows are ordered by createdAt
// descending, then id descending, so (createdAt, id) is a total order and a
// token identifies exactly where the next page starts.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"marketplace-be/internal/apperror"

	"github.com/google/uuid"
)

var ErrMalformed = apperror.InvalidRequest("invalid cursor")

// Key is the sort key of a row.
type Key struct {
	CreatedAt time.Time
	ID        string
}

type payload struct {
	CreatedAt string `json:"createdAt"`
	ID        string `json:"id"`
}

func Encode(k Key) string {
	raw, _ := json.Marshal(payload{
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:        k.ID,
	})
	return base64.URLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. Any other input yields
// ErrMalformed.
func Decode(token string) (Key, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Key{}, ErrMalformed
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return Key{}, ErrMalformed
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return Key{}, ErrMalformed
	}
	if dec.More() {
		return Key{}, ErrMalformed
	}

	createdAt, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return Key{}, ErrMalformed
	}

	id, err := uuid.Parse(p.ID)
	if err != nil {
		return Key{}, ErrMalformed
	}

	return Key{CreatedAt: createdAt.UTC(), ID: id.String()}, nil
}

// After reports whether the row keyed (createdAt, id) comes after k in
// createdAt DESC, id DESC order.
func (k Key) After(createdAt time.Time, id string) bool {
	if createdAt.Before(k.CreatedAt) {
		return true
	}
	return createdAt.Equal(k.CreatedAt) && id < k.ID
}
