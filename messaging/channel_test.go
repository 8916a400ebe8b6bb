package messaging

import (
	"strings"
	"testing"

	"github.com/rvnlabs/rvnassets/asset"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, full string) *asset.Name {
	t.Helper()

	name, err := asset.ParseFullName(full)
	require.NoError(t, err)

	return name
}

// TestNewChannel tests the length checks of channel names.
func TestNewChannel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		channel  string
		parent   string
		fullName string
		err      error
	}{{
		name:     "root parent",
		channel:  "CHAN1",
		parent:   "MAIN1",
		fullName: "MAIN1~CHAN1",
	}, {
		name:     "sub parent",
		channel:  "CHAN2",
		parent:   "MAIN1/SUB1",
		fullName: "MAIN1/SUB1~CHAN2",
	}, {
		name:     "max channel length",
		channel:  strings.Repeat("C", MaxChannelLength),
		parent:   "MAIN",
		fullName: "MAIN~" + strings.Repeat("C", MaxChannelLength),
	}, {
		name:    "segment too long",
		channel: "CHANNELXXXXXXXX",
		parent:  "MAIN1",
		err:     ErrChannelTooLong,
	}, {
		name:    "segment checked first",
		channel: "CHANNELXXXXXXXX",
		parent:  strings.Repeat("A", 30),
		err:     ErrChannelTooLong,
	}, {
		name:    "combined too long",
		channel: "CHANNEL",
		parent:  strings.Repeat("A", 30),
		err:     ErrFullNameTooLong,
	}, {
		name:    "combined too long under sub",
		channel: "AAAAAAAAAAA",
		parent:  "1234567890/1234567890",
		err:     ErrFullNameTooLong,
	}, {
		name:    "unique parent",
		channel: "CHAN",
		parent:  "MAIN#TAG",
		err:     ErrInvalidParent,
	}, {
		name:    "ownership parent",
		channel: "CHAN",
		parent:  "MAIN!",
		err:     ErrInvalidParent,
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			parent := mustParse(t, tc.parent)

			channel, err := NewChannel(tc.channel, parent)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, channel)

				var chanErr *ChannelError
				require.ErrorAs(t, err, &chanErr)
				require.NotEmpty(t, chanErr.Error())
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.fullName, channel.FullName())
			require.Equal(t, tc.fullName, channel.String())
			require.Equal(t, tc.channel, channel.Name())
			require.Same(t, parent, channel.Parent())
		})
	}
}

// TestNewChannelNilParent makes sure a channel always has a parent.
func TestNewChannelNilParent(t *testing.T) {
	t.Parallel()

	_, err := NewChannel("CHAN", nil)
	require.ErrorIs(t, err, ErrInvalidParent)
}
