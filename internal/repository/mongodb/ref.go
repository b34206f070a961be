// Package mongodb implements the repositories over MongoDB. Surrogate keys are
// ObjectIDs; the legacy id and the car and user references of rentals are
// mixed-type fields that may hold an ObjectID, a number or a string.
package mongodb

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"carrental/internal/domain"
)

// mixed stores a domain.Ref in its native BSON type.
type mixed domain.Ref

// IsZero lets omitempty drop unset references.
func (m mixed) IsZero() bool {
	return domain.Ref(m).IsZero()
}

func (m mixed) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch m.Kind {
	case domain.RefKey:
		oid, err := primitive.ObjectIDFromHex(m.Key)
		if err != nil {
			return 0, nil, fmt.Errorf("key %q is not an ObjectID: %w", m.Key, err)
		}
		return bsontype.ObjectID, bsoncore.AppendObjectID(nil, oid), nil
	case domain.RefNumber:
		return bsontype.Int64, bsoncore.AppendInt64(nil, m.Num), nil
	case domain.RefString:
		return bsontype.String, bsoncore.AppendString(nil, m.Str), nil
	default:
		return bsontype.Null, nil, nil
	}
}

func (m *mixed) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v := bsoncore.Value{Type: t, Data: data}

	switch t {
	case bsontype.ObjectID:
		*m = mixed(domain.KeyRef(v.ObjectID().Hex()))
	case bsontype.Int32:
		*m = mixed(domain.NumberRef(int64(v.Int32())))
	case bsontype.Int64:
		*m = mixed(domain.NumberRef(v.Int64()))
	case bsontype.Double:
		f := v.Double()
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			*m = mixed(domain.NumberRef(int64(f)))
		} else {
			*m = mixed(domain.StringRef(fmt.Sprint(f)))
		}
	case bsontype.String:
		s := v.StringValue()
		if s == "" {
			*m = mixed{}
		} else {
			*m = mixed(domain.StringRef(s))
		}
	case bsontype.Null, bsontype.Undefined:
		*m = mixed{}
	default:
		return fmt.Errorf("unsupported identifier type %s", t)
	}
	return nil
}

// mixedIn converts refs to query values. Key refs that are not ObjectIDs
// cannot be stored here and are dropped.
func mixedIn(refs []domain.Ref) []any {
	out := make([]any, 0, len(refs))
	for _, r := range refs {
		if r.Kind == domain.RefKey && !primitive.IsValidObjectID(r.Key) {
			continue
		}
		out = append(out, mixed(r))
	}
	return out
}
