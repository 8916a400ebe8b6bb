package messaging

import (
	"errors"
	"fmt"

	"github.com/rvnlabs/rvnassets/asset"
)

const (
	// MaxChannelLength is the maximum length of a channel's own segment.
	MaxChannelLength = 12

	// Separator joins a channel to its parent asset.
	Separator = "~"
)

var (
	// ErrInvalidParent is returned when a channel is created under
	// anything but a root or sub asset, or under an ownership token.
	ErrInvalidParent = errors.New("messaging: channel parent must be a " +
		"root or sub asset")

	// ErrChannelTooLong is returned when the channel segment exceeds
	// MaxChannelLength.
	ErrChannelTooLong = errors.New("messaging: channel name too long")

	// ErrFullNameTooLong is returned when the parent and channel together
	// exceed the asset name length limit.
	ErrFullNameTooLong = errors.New("messaging: full channel name too " +
		"long")
)

// ChannelError is returned when a channel name is rejected.
type ChannelError struct {
	// Name is the offending string: the channel segment for segment
	// failures, the combined name for full length failures.
	Name string

	// MaxLen is the limit that was exceeded, if any.
	MaxLen int

	// Err is the reason the channel was rejected.
	Err error
}

// Error returns a human-readable description of the failure.
func (e *ChannelError) Error() string {
	if e.MaxLen == 0 {
		return fmt.Sprintf("%v: %q", e.Err, e.Name)
	}

	return fmt.Sprintf("%v: %q (max %d characters)", e.Err, e.Name,
		e.MaxLen)
}

// Unwrap returns the underlying sentinel error.
func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Channel is a validated message channel of an asset.
type Channel struct {
	name   string
	parent *asset.Name
}

// NewChannel validates a channel name under the given parent asset. The
// segment length is checked before the combined length.
func NewChannel(name string, parent *asset.Name) (*Channel, error) {
	if parent == nil {
		return nil, &ChannelError{Name: name, Err: ErrInvalidParent}
	}
	switch parent.Kind() {
	case asset.KindRoot, asset.KindSub:
	default:
		return nil, &ChannelError{
			Name: parent.FullName(),
			Err:  ErrInvalidParent,
		}
	}
	if parent.IsOwnership() {
		return nil, &ChannelError{
			Name: parent.FullName(),
			Err:  ErrInvalidParent,
		}
	}

	if len(name) > MaxChannelLength {
		return nil, &ChannelError{
			Name:   name,
			MaxLen: MaxChannelLength,
			Err:    ErrChannelTooLong,
		}
	}

	full := parent.FullName() + Separator + name
	if len(full) > asset.MaxNameLength {
		return nil, &ChannelError{
			Name:   full,
			MaxLen: asset.MaxNameLength,
			Err:    ErrFullNameTooLong,
		}
	}

	return &Channel{
		name:   name,
		parent: parent,
	}, nil
}

// Name returns the channel's own segment.
func (c *Channel) Name() string {
	return c.name
}

// Parent returns the asset the channel belongs to.
func (c *Channel) Parent() *asset.Name {
	return c.parent
}

// FullName returns the parent's full name and the channel joined by the
// separator, e.g. "MAIN/SUB~NEWS".
func (c *Channel) FullName() string {
	return c.parent.FullName() + Separator + c.name
}

// String returns the full channel name.
func (c *Channel) String() string {
	return c.FullName()
}
