package domain

import "strconv"

// RefKind identifies which identifier scheme a Ref holds.
type RefKind uint8

const (
	RefNone   RefKind = iota
	RefKey            // store-generated surrogate key
	RefNumber         // legacy numeric identifier
	RefString         // legacy string identifier
)

// Ref is a reference to a record that may use any of the identifier schemes
// found in the same collection. Exactly one of Key, Num or Str is meaningful,
// selected by Kind.
type Ref struct {
	Kind RefKind
	Key  string
	Num  int64
	Str  string
}

// KeyRef references a record by its surrogate key.
func KeyRef(key string) Ref {
	return Ref{Kind: RefKey, Key: key}
}

// NumberRef references a record by its legacy numeric identifier.
func NumberRef(n int64) Ref {
	return Ref{Kind: RefNumber, Num: n}
}

// StringRef references a record by its legacy string identifier.
func StringRef(s string) Ref {
	return Ref{Kind: RefString, Str: s}
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Kind == RefNone
}

// String returns the raw textual form of the reference.
func (r Ref) String() string {
	switch r.Kind {
	case RefKey:
		return r.Key
	case RefNumber:
		return strconv.FormatInt(r.Num, 10)
	case RefString:
		return r.Str
	default:
		return ""
	}
}

// Aliases returns every reference that can point at a record identified by
// key and legacy. Legacy records store the same identity as a number in one
// place and as its decimal string in another, so both spellings are included.
func Aliases(key string, legacy Ref) []Ref {
	refs := make([]Ref, 0, 4)
	if key != "" {
		refs = append(refs, KeyRef(key), StringRef(key))
	}

	switch legacy.Kind {
	case RefNumber:
		refs = append(refs, legacy, StringRef(strconv.FormatInt(legacy.Num, 10)))
	case RefString:
		refs = append(refs, legacy)
		if n, err := strconv.ParseInt(legacy.Str, 10, 64); err == nil {
			refs = append(refs, NumberRef(n))
		}
	}

	return refs
}

// PreferredRef returns the legacy identifier when present, else the
// surrogate key. New rentals reference vehicles and users this way.
func PreferredRef(key string, legacy Ref) Ref {
	if !legacy.IsZero() {
		return legacy
	}
	return KeyRef(key)
}

// ContainsRef reports whether ref is one of refs.
func ContainsRef(refs []Ref, ref Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
