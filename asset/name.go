package asset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxNameLength is the maximum length of an asset's full name, not
	// counting any unique tag separators. Ownership tokens get one extra
	// character for their trailing OwnershipTag.
	MaxNameLength = 30

	// OwnershipTag is the suffix that marks the ownership token of an
	// asset.
	OwnershipTag = "!"

	// SubSeparator joins a sub asset to its parent.
	SubSeparator = "/"

	// UniqueSeparator joins a unique tag to its parent. It is not counted
	// when checking the length of a full name.
	UniqueSeparator = "#"
)

var (
	rootNameChars   = regexp.MustCompile(`^[A-Z0-9._]{3,}$`)
	subNameChars    = regexp.MustCompile(`^[A-Z0-9._]+$`)
	uniqueTagChars  = regexp.MustCompile(`^[-A-Za-z0-9@$%&*()[\]{}_.?:]+$`)
	doublePunct     = regexp.MustCompile(`[._]{2,}`)
	leadingPunct    = regexp.MustCompile(`^[._]`)
	trailingPunct   = regexp.MustCompile(`[._]$`)
	reservedNameSet = map[string]struct{}{
		"RVN":       {},
		"RAVEN":     {},
		"RAVENCOIN": {},
	}
)

var (
	// ErrReservedName is returned for the names reserved for the native
	// coin.
	ErrReservedName = errors.New("asset: name is reserved " +
		"(RVN/RAVEN/RAVENCOIN)")

	// ErrDoublePunctuation is returned when a name contains two
	// consecutive punctuation characters.
	ErrDoublePunctuation = errors.New("asset: double punctuation")

	// ErrLeadingPunctuation is returned when a name starts with '.' or
	// '_'.
	ErrLeadingPunctuation = errors.New("asset: leading punctuation")

	// ErrTrailingPunctuation is returned when a name ends with '.' or '_'.
	ErrTrailingPunctuation = errors.New("asset: trailing punctuation")

	// ErrInvalidCharacters is returned when a name doesn't match the
	// character set (or minimum length) of its kind.
	ErrInvalidCharacters = errors.New("asset: invalid characters in name")

	// ErrNameTooLong is returned when the full name of an asset exceeds
	// the maximum length.
	ErrNameTooLong = errors.New("asset: name too long")

	// ErrInvalidParent is returned when a name is given a parent that its
	// kind doesn't allow.
	ErrInvalidParent = errors.New("asset: invalid parent")

	// ErrInvalidOwnership is returned when an ownership token is requested
	// for a kind of asset that can't have one.
	ErrInvalidOwnership = errors.New("asset: unique assets can't be " +
		"ownership tokens")
)

// NameError is returned when a candidate asset name is rejected. The wrapped
// error is one of the name sentinel errors of this package.
type NameError struct {
	// Name is the rejected name. For length failures this is the full
	// name that was measured.
	Name string

	// MaxLen is the length budget that applied, only set for
	// ErrNameTooLong.
	MaxLen int

	// Err is the reason the name was rejected.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *NameError) Error() string {
	if errors.Is(e.Err, ErrNameTooLong) {
		return fmt.Sprintf("%v: %q (max %d characters)", e.Err,
			e.Name, e.MaxLen)
	}

	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

// Unwrap returns the underlying sentinel error.
func (e *NameError) Unwrap() error {
	return e.Err
}

// NameKind is the class of an asset name. The kind decides which grammar a
// name segment is checked against and how the full name is composed.
type NameKind uint8

const (
	// KindRoot is a top level asset, e.g. "NUKA".
	KindRoot NameKind = iota

	// KindSub is a sub asset issued under a root (or another sub) asset,
	// e.g. "NUKA/COLA".
	KindSub

	// KindUnique is a unique asset tag under a root or sub asset, e.g.
	// "NUKA/COLA#Cap1".
	KindUnique
)

// String returns a human-readable description of the kind.
func (k NameKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindSub:
		return "sub"
	case KindUnique:
		return "unique"
	default:
		return "<unknown>"
	}
}

// charset returns the grammar a name segment of this kind must match.
func (k NameKind) charset() (*regexp.Regexp, string) {
	switch k {
	case KindRoot:
		return rootNameChars, "'A-Z', '0-9', '.' and '_' allowed, " +
			"uppercase only, min length 3"
	case KindSub:
		return subNameChars, "'A-Z', '0-9', '.' and '_' allowed, " +
			"uppercase only"
	default:
		return uniqueTagChars, "'A-Z', 'a-z', '0-9' and " +
			"'-@$%&*()[]{}_.?:' allowed"
	}
}

// Name is a validated asset name. A Name is immutable once created, and
// parents are shared read-only between their children.
type Name struct {
	kind      NameKind
	segment   string
	parent    *Name
	ownership bool
}

// Kind returns the class of the name.
func (n *Name) Kind() NameKind {
	return n.kind
}

// Segment returns the name's own segment, without its parent. For ownership
// tokens this includes the trailing OwnershipTag.
func (n *Name) Segment() string {
	return n.segment
}

// Parent returns the parent name, or nil for root names.
func (n *Name) Parent() *Name {
	return n.parent
}

// IsOwnership returns true if the name is an ownership token.
func (n *Name) IsOwnership() bool {
	return n.ownership
}

// FullName returns the fully qualified name, e.g. "ROOT", "ROOT/SUB" or
// "ROOT/SUB#TAG".
func (n *Name) FullName() string {
	return fullName(n.kind, n.segment, n.parent)
}

// String returns the fully qualified name.
func (n *Name) String() string {
	return n.FullName()
}

// fullName composes the fully qualified name of a segment under a parent.
func fullName(kind NameKind, segment string, parent *Name) string {
	switch kind {
	case KindSub:
		return parent.FullName() + SubSeparator + segment
	case KindUnique:
		return parent.FullName() + UniqueSeparator + segment
	default:
		return segment
	}
}

// ValidateName validates a name segment of the given kind under an optional
// parent, and returns the resulting immutable name. The grammar checks run
// in a fixed order and stop at the first failure.
func ValidateName(candidate string, kind NameKind, parent *Name,
	ownership bool) (*Name, error) {

	if err := checkStructure(kind, parent, ownership); err != nil {
		return nil, &NameError{Name: candidate, Err: err}
	}

	fail := func(err error) (*Name, error) {
		return nil, &NameError{Name: candidate, Err: err}
	}

	if _, ok := reservedNameSet[candidate]; ok {
		return fail(ErrReservedName)
	}
	if doublePunct.MatchString(candidate) {
		return fail(ErrDoublePunctuation)
	}
	if leadingPunct.MatchString(candidate) {
		return fail(ErrLeadingPunctuation)
	}
	if trailingPunct.MatchString(candidate) {
		return fail(ErrTrailingPunctuation)
	}

	charset, allowed := kind.charset()
	if !charset.MatchString(candidate) {
		return fail(fmt.Errorf("%w (%s)", ErrInvalidCharacters,
			allowed))
	}

	maxLen := MaxNameLength
	segment := candidate
	if ownership {
		if !strings.HasSuffix(segment, OwnershipTag) {
			segment += OwnershipTag
		}
		maxLen++
	}

	full := fullName(kind, segment, parent)
	measured := strings.ReplaceAll(full, UniqueSeparator, "")
	if len(measured) > maxLen {
		return nil, &NameError{
			Name:   full,
			MaxLen: maxLen,
			Err:    ErrNameTooLong,
		}
	}

	return &Name{
		kind:      kind,
		segment:   segment,
		parent:    parent,
		ownership: ownership,
	}, nil
}

// checkStructure makes sure the parent and ownership flag are allowed for the
// given kind of name.
func checkStructure(kind NameKind, parent *Name, ownership bool) error {
	if parent != nil && parent.ownership {
		return fmt.Errorf("%w: ownership token %v can't be a parent",
			ErrInvalidParent, parent)
	}

	switch kind {
	case KindRoot:
		if parent != nil {
			return fmt.Errorf("%w: root assets have no parent",
				ErrInvalidParent)
		}

	case KindSub:
		if parent == nil || parent.kind == KindUnique {
			return fmt.Errorf("%w: sub assets require a root or "+
				"sub parent", ErrInvalidParent)
		}

	case KindUnique:
		if parent == nil || parent.kind == KindUnique {
			return fmt.Errorf("%w: unique assets require a root "+
				"or sub parent", ErrInvalidParent)
		}
		if ownership {
			return ErrInvalidOwnership
		}

	default:
		return fmt.Errorf("%w: unknown name kind %d", ErrInvalidParent,
			kind)
	}

	return nil
}

// NewRootName validates a root asset name.
func NewRootName(name string, ownership bool) (*Name, error) {
	return ValidateName(name, KindRoot, nil, ownership)
}

// NewSubName validates a sub asset name under the given parent.
func NewSubName(name string, parent *Name, ownership bool) (*Name, error) {
	return ValidateName(name, KindSub, parent, ownership)
}

// NewUniqueName validates a unique asset tag under the given parent.
func NewUniqueName(tag string, parent *Name) (*Name, error) {
	return ValidateName(tag, KindUnique, parent, false)
}

// ParseFullName parses and validates a fully qualified asset name such as
// "ROOT", "ROOT!", "ROOT/SUB/SUB2!" or "ROOT/SUB#TAG". Every segment is
// validated on its own, so the returned name carries a validated parent
// chain.
func ParseFullName(full string) (*Name, error) {
	var uniqueTag string
	hasTag := false
	if idx := strings.Index(full, UniqueSeparator); idx >= 0 {
		uniqueTag = full[idx+1:]
		full = full[:idx]
		hasTag = true
	}

	ownership := false
	if !hasTag && strings.HasSuffix(full, OwnershipTag) {
		ownership = true
		full = strings.TrimSuffix(full, OwnershipTag)
	}

	segments := strings.Split(full, SubSeparator)

	var (
		name *Name
		err  error
	)
	for i, segment := range segments {
		last := i == len(segments)-1
		owner := ownership && last

		if i == 0 {
			name, err = NewRootName(segment, owner)
		} else {
			name, err = NewSubName(segment, name, owner)
		}
		if err != nil {
			return nil, err
		}
	}

	if hasTag {
		return NewUniqueName(uniqueTag, name)
	}

	return name, nil
}
