package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes the two token roles a cache entry can describe.
type Kind uint8

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// ParseKind maps the stored kind label back to its Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "access":
		return KindAccess, nil
	case "refresh":
		return KindRefresh, nil
	default:
		return 0, fmt.Errorf("unknown token kind %q", s)
	}
}

// Permission is the numeric permission level persisted with each user and
// carried inside every session entry.
type Permission uint8

const (
	PermissionAdmin   Permission = 1
	PermissionGeneral Permission = 2
)

func (p Permission) Valid() bool {
	return p == PermissionAdmin || p == PermissionGeneral
}

func (p Permission) String() string {
	switch p {
	case PermissionAdmin:
		return "admin"
	case PermissionGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// ParsePermission converts a stored permission code into a Permission.
func ParsePermission(code uint8) (Permission, error) {
	p := Permission(code)
	if !p.Valid() {
		return 0, fmt.Errorf("unknown permission code %d", code)
	}
	return p, nil
}

// Content is what a live cache entry resolves to: the owning user, which
// role the token plays, and the permission level captured at sign-in.
type Content struct {
	UserID     uuid.UUID
	Kind       Kind
	Permission Permission
}

// Entries are stored as "<user id>:<kind>:<permission code>".
func encodeContent(c Content) string {
	return fmt.Sprintf("%s:%s:%d", c.UserID, c.Kind, uint8(c.Permission))
}

func decodeContent(value string) (*Content, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return nil, errors.New("wrong number of segments")
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, fmt.Errorf("bad user id segment: %v", err)
	}
	kind, err := ParseKind(parts[1])
	if err != nil {
		return nil, err
	}
	code, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("bad permission segment: %v", err)
	}
	permission, err := ParsePermission(uint8(code))
	if err != nil {
		return nil, err
	}

	return &Content{UserID: userID, Kind: kind, Permission: permission}, nil
}
