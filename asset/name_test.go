package asset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateRootName tests the grammar checks of root asset names and the
// order they are applied in.
func TestValidateRootName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		candidate string
		ownership bool
		fullName  string
		err       error
	}{{
		name:      "plain root",
		candidate: "NUKA",
		fullName:  "NUKA",
	}, {
		name:      "minimum length",
		candidate: "ABC",
		fullName:  "ABC",
	}, {
		name:      "punctuation inside",
		candidate: "A.B_C",
		fullName:  "A.B_C",
	}, {
		name:      "max length",
		candidate: strings.Repeat("A", MaxNameLength),
		fullName:  strings.Repeat("A", MaxNameLength),
	}, {
		name:      "ownership token",
		candidate: "FOO",
		ownership: true,
		fullName:  "FOO!",
	}, {
		name:      "ownership token uses extra character",
		candidate: strings.Repeat("A", MaxNameLength),
		ownership: true,
		fullName:  strings.Repeat("A", MaxNameLength) + "!",
	}, {
		name:      "reserved RVN",
		candidate: "RVN",
		err:       ErrReservedName,
	}, {
		name:      "reserved RAVEN",
		candidate: "RAVEN",
		err:       ErrReservedName,
	}, {
		name:      "reserved RAVENCOIN",
		candidate: "RAVENCOIN",
		err:       ErrReservedName,
	}, {
		name:      "reserved is checked before charset",
		candidate: "RVN",
		ownership: true,
		err:       ErrReservedName,
	}, {
		name:      "double dot",
		candidate: "A..B",
		err:       ErrDoublePunctuation,
	}, {
		name:      "dot underscore",
		candidate: "A._B",
		err:       ErrDoublePunctuation,
	}, {
		name:      "double punctuation before leading",
		candidate: "__AB",
		err:       ErrDoublePunctuation,
	}, {
		name:      "leading dot",
		candidate: ".AB",
		err:       ErrLeadingPunctuation,
	}, {
		name:      "trailing dot",
		candidate: "AB.",
		err:       ErrTrailingPunctuation,
	}, {
		name:      "trailing underscore",
		candidate: "ABC_",
		err:       ErrTrailingPunctuation,
	}, {
		name:      "too short",
		candidate: "AB",
		err:       ErrInvalidCharacters,
	}, {
		name:      "lowercase",
		candidate: "abc",
		err:       ErrInvalidCharacters,
	}, {
		name:      "symbol",
		candidate: "AB$C",
		err:       ErrInvalidCharacters,
	}, {
		name:      "empty",
		candidate: "",
		err:       ErrInvalidCharacters,
	}, {
		name:      "too long",
		candidate: strings.Repeat("A", MaxNameLength+1),
		err:       ErrNameTooLong,
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			name, err := NewRootName(tc.candidate, tc.ownership)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, name)

				var nameErr *NameError
				require.ErrorAs(t, err, &nameErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.fullName, name.FullName())
			require.Equal(t, tc.fullName, name.String())
			require.Equal(t, KindRoot, name.Kind())
			require.Equal(t, tc.ownership, name.IsOwnership())
			require.Nil(t, name.Parent())
		})
	}
}

// TestValidRootNamesUnchanged makes sure every root name made of the allowed
// alphabet is accepted and returned unchanged.
func TestValidRootNamesUnchanged(t *testing.T) {
	t.Parallel()

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for length := 3; length <= MaxNameLength; length++ {
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(alphabet[(i*7+length)%len(alphabet)])
		}
		candidate := b.String()

		name, err := NewRootName(candidate, false)
		require.NoError(t, err, candidate)
		require.Equal(t, candidate, name.FullName())
	}
}

// TestSubAndUniqueNames tests composition and length accounting of sub and
// unique asset names.
func TestSubAndUniqueNames(t *testing.T) {
	t.Parallel()

	root, err := NewRootName("MAIN", false)
	require.NoError(t, err)

	sub, err := NewSubName("SUB", root, false)
	require.NoError(t, err)
	require.Equal(t, "MAIN/SUB", sub.FullName())
	require.Same(t, root, sub.Parent())

	// Sub names have no minimum length.
	short, err := NewSubName("A", root, false)
	require.NoError(t, err)
	require.Equal(t, "MAIN/A", short.FullName())

	nested, err := NewSubName("DEEP", sub, true)
	require.NoError(t, err)
	require.Equal(t, "MAIN/SUB/DEEP!", nested.FullName())

	unique, err := NewUniqueName("Tag-1@{x}", sub)
	require.NoError(t, err)
	require.Equal(t, "MAIN/SUB#Tag-1@{x}", unique.FullName())
	require.Equal(t, "MAIN/SUB#Tag-1@{x}", unique.String())
	require.Equal(t, "Tag-1@{x}", unique.Segment())

	// The '#' separator isn't counted: 4 + 1 + 3 + 22 = 30 characters.
	tag := strings.Repeat("t", 22)
	unique, err = NewUniqueName(tag, sub)
	require.NoError(t, err)
	require.Len(t, unique.FullName(), MaxNameLength+1)

	_, err = NewUniqueName(tag+"t", sub)
	require.ErrorIs(t, err, ErrNameTooLong)

	// Sub names count their parent towards the budget.
	longRoot, err := NewRootName(strings.Repeat("R", 28), false)
	require.NoError(t, err)
	_, err = NewSubName("AB", longRoot, false)
	require.ErrorIs(t, err, ErrNameTooLong)

	_, err = NewSubName("A", longRoot, false)
	require.NoError(t, err)

	// An ownership token gets exactly one more character.
	_, err = NewSubName("A", longRoot, true)
	require.NoError(t, err)

	// Sub names use the root alphabet.
	_, err = NewSubName("lower", root, false)
	require.ErrorIs(t, err, ErrInvalidCharacters)
}

// TestNameStructure tests the parent and ownership rules of the name kinds.
func TestNameStructure(t *testing.T) {
	t.Parallel()

	root, err := NewRootName("MAIN", false)
	require.NoError(t, err)
	owner, err := NewRootName("MAIN", true)
	require.NoError(t, err)
	unique, err := NewUniqueName("TAG", root)
	require.NoError(t, err)

	_, err = NewSubName("SUB", nil, false)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = NewSubName("SUB", owner, false)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = NewSubName("SUB", unique, false)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = NewUniqueName("TAG", nil)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = NewUniqueName("TAG", unique)
	require.ErrorIs(t, err, ErrInvalidParent)

	_, err = ValidateName("TAG", KindUnique, root, true)
	require.ErrorIs(t, err, ErrInvalidOwnership)

	_, err = ValidateName("ROOT", KindRoot, root, false)
	require.ErrorIs(t, err, ErrInvalidParent)
}

// TestParseFullName tests parsing of fully qualified asset names.
func TestParseFullName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		full      string
		kind      NameKind
		ownership bool
		err       error
	}{{
		full: "NUKA",
		kind: KindRoot,
	}, {
		full:      "NUKA!",
		kind:      KindRoot,
		ownership: true,
	}, {
		full: "NUKA/COLA/CAP",
		kind: KindSub,
	}, {
		full:      "NUKA/COLA!",
		kind:      KindSub,
		ownership: true,
	}, {
		full: "NUKA/COLA#Cap_1",
		kind: KindUnique,
	}, {
		full: "NUKA#Cap",
		kind: KindUnique,
	}, {
		full: "RVN/SUB",
		err:  ErrReservedName,
	}, {
		full: "NUKA//COLA",
		err:  ErrInvalidCharacters,
	}, {
		full: "NUKA#",
		err:  ErrInvalidCharacters,
	}, {
		full: "NUKA#A#B",
		err:  ErrInvalidCharacters,
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.full, func(t *testing.T) {
			t.Parallel()

			name, err := ParseFullName(tc.full)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.full, name.FullName())
			require.Equal(t, tc.kind, name.Kind())
			require.Equal(t, tc.ownership, name.IsOwnership())
		})
	}
}
