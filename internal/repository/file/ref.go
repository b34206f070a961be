package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"carrental/internal/domain"
)

// jsonRef encodes a domain.Ref the way the data files spell identifiers:
// legacy numbers as JSON numbers, legacy strings as JSON strings and
// surrogate keys as {"$key": "..."}.
type jsonRef domain.Ref

type keyObject struct {
	Key string `json:"$key"`
}

func (r jsonRef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case domain.RefNumber:
		return []byte(strconv.FormatInt(r.Num, 10)), nil
	case domain.RefString:
		return json.Marshal(r.Str)
	case domain.RefKey:
		return json.Marshal(keyObject{Key: r.Key})
	default:
		return []byte("null"), nil
	}
}

func (r *jsonRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = jsonRef{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*r = jsonRef{}
			return nil
		}
		*r = jsonRef(domain.StringRef(s))
	case data[0] == '{':
		var obj keyObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = jsonRef(domain.KeyRef(obj.Key))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("identifier: %w", err)
		}
		if i, err := n.Int64(); err == nil {
			*r = jsonRef(domain.NumberRef(i))
			return nil
		}
		// Non-integral numbers can only match by their text.
		*r = jsonRef(domain.StringRef(n.String()))
	}
	return nil
}
