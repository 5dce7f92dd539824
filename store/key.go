package store

import (
	"fmt"
	"sort"
	"strings"
)

// uidSeparator joins the type name and the uid in a record name. Type names
// may not contain it, so the first occurrence always ends the type name.
const uidSeparator = "-"

// Key addresses one record. An empty UID is the default record of a type.
type Key struct {
	Type string
	UID  string
}

// NewKey returns a validated key.
func NewKey(typeName, uid string) (Key, error) {
	k := Key{Type: typeName, UID: uid}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// Validate checks that the key maps to exactly one record name.
func (k Key) Validate() error {
	switch {
	case k.Type == "":
		return fmt.Errorf("%w: empty type name", ErrInvalidArgument)
	case strings.HasPrefix(k.Type, "."):
		return fmt.Errorf("%w: type name %q starts with '.'", ErrInvalidArgument, k.Type)
	case strings.Contains(k.Type, uidSeparator):
		return fmt.Errorf("%w: type name %q contains %q", ErrInvalidArgument, k.Type, uidSeparator)
	case strings.ContainsAny(k.Type, "/\\\x00"):
		return fmt.Errorf("%w: type name %q contains a path separator", ErrInvalidArgument, k.Type)
	case strings.ContainsAny(k.UID, "/\\\x00"):
		return fmt.Errorf("%w: uid %q contains a path separator", ErrInvalidArgument, k.UID)
	}
	return nil
}

// Name is the record name: the type name, followed by "-uid" when the uid
// is set.
func (k Key) Name() string {
	if k.UID == "" {
		return k.Type
	}
	return k.Type + uidSeparator + k.UID
}

func (k Key) String() string {
	return k.Name()
}

// ParseName reverses Name. It reports false for names no valid key produces.
func ParseName(name string) (Key, bool) {
	typeName, uid, _ := strings.Cut(name, uidSeparator)
	k := Key{Type: typeName, UID: uid}
	if k.Validate() != nil {
		return Key{}, false
	}
	if strings.HasSuffix(name, uidSeparator) && uid == "" {
		// "Type-" would otherwise parse as the default record.
		return Key{}, false
	}
	return k, true
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].UID < keys[j].UID
	})
}
