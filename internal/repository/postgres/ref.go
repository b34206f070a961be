package postgres

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"

	"carrental/internal/domain"
)

// Reference kinds as stored in the *_kind columns.
const (
	kindKey    = "key"
	kindNumber = "number"
	kindString = "string"
)

// encodeRef splits ref into its kind and value columns. An unset ref is
// stored as two NULLs.
func encodeRef(ref domain.Ref) (sql.NullString, sql.NullString) {
	var kind string
	switch ref.Kind {
	case domain.RefKey:
		kind = kindKey
	case domain.RefNumber:
		kind = kindNumber
	case domain.RefString:
		kind = kindString
	default:
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: kind, Valid: true}, sql.NullString{String: ref.String(), Valid: true}
}

func decodeRef(kind, value sql.NullString) (domain.Ref, error) {
	if !kind.Valid {
		return domain.Ref{}, nil
	}

	switch kind.String {
	case kindKey:
		return domain.KeyRef(value.String), nil
	case kindNumber:
		n, err := strconv.ParseInt(value.String, 10, 64)
		if err != nil {
			return domain.Ref{}, fmt.Errorf("numeric reference %q: %w", value.String, err)
		}
		return domain.NumberRef(n), nil
	case kindString:
		return domain.StringRef(value.String), nil
	default:
		return domain.Ref{}, fmt.Errorf("unknown reference kind %q", kind.String)
	}
}

// refEq matches the kind and value columns against ref.
func refEq(kindCol, valueCol string, ref domain.Ref) squirrel.Eq {
	kind, value := encodeRef(ref)
	return squirrel.Eq{kindCol: kind.String, valueCol: value.String}
}

// refIn matches the kind and value columns against any of refs.
func refIn(kindCol, valueCol string, refs []domain.Ref) squirrel.Or {
	or := make(squirrel.Or, 0, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		or = append(or, refEq(kindCol, valueCol, ref))
	}
	return or
}
